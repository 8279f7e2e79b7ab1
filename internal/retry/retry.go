package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/metrics"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// SleepFunc 等待 d；ctx 取消时提前返回 ctx.Err()
type SleepFunc func(ctx context.Context, d time.Duration) error

// Manager 指数退避重试：第 k 次（从 0 开始）失败后等待 baseDelay * 2^k，不加抖动、不设上限
type Manager struct {
	maxRetries int
	baseDelay  time.Duration
	sleep      SleepFunc
	logger     *slog.Logger
}

// New maxRetries < 0 视为 0；baseDelay <= 0 使用默认值
func New(maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Manager {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Manager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepContext,
		logger:     logging.OrDefault(logger).With("component", "retry"),
	}
}

// WithSleep 替换等待函数，测试中用来记录退避时长
func (m *Manager) WithSleep(fn SleepFunc) *Manager {
	cp := *m
	cp.sleep = fn
	return &cp
}

// MaxRetries 最大重试次数（总尝试次数为 MaxRetries+1）
func (m *Manager) MaxRetries() int {
	return m.maxRetries
}

// Delay 第 attempt 次失败后的等待时长；溢出时饱和为 math.MaxInt64
func (m *Manager) Delay(attempt int) time.Duration {
	if m.baseDelay <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 63 || m.baseDelay > time.Duration(math.MaxInt64>>uint(attempt)) {
		return time.Duration(math.MaxInt64)
	}
	return m.baseDelay << uint(attempt)
}

// permanentError 标记不值得再试的失败（例如 4xx）
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 包装 err，使 Execute 立即停止重试并返回 err 本身
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func unwrapPermanent(err error) (error, bool) {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err, true
	}
	return err, false
}

// Execute 执行 op。retryable 为 false 时只调用一次；否则最多尝试 maxRetries+1 次，
// 最后一次失败的错误原样返回，由调用方负责分类。
func Execute[T any](ctx context.Context, m *Manager, op func() (T, error), retryable bool) (T, error) {
	if !retryable {
		v, err := op()
		if err != nil {
			err, _ = unwrapPermanent(err)
		}
		return v, err
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if inner, ok := unwrapPermanent(err); ok {
			return zero, inner
		}
		lastErr = err

		if attempt == m.maxRetries {
			break
		}

		delay := m.Delay(attempt)
		m.logger.Warn("attempt failed, retrying",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		metrics.RetryTotal.Inc()

		if err := m.sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

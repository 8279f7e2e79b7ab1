package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/HotFeed/internal/apperr"
	"github.com/LJTian/HotFeed/internal/model"
)

// Source 抽象每一种上游；返回 {code, message, data} 信封的原始字节
type Source interface {
	Fetch(ctx context.Context, cat model.Category) ([]byte, error)
}

const (
	DefaultBaseURL      = "https://60s.viki.moe"
	DefaultHTTPTimeout  = 10 * time.Second
	maxResponseBytes    = 4 << 20 // 4MB
	defaultUserAgent    = "HotFeedBot/1.0"
	envelopeSuccessCode = 200
)

// APISource 请求 60s 这类 JSON 接口：GET BaseURL + Endpoint
type APISource struct {
	BaseURL string
	Client  *http.Client
}

func NewAPISource(baseURL string, timeout time.Duration) *APISource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &APISource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *APISource) Fetch(ctx context.Context, cat model.Category) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+cat.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", cat.ID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cat.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w: %v", cat.ID, apperr.ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperr.ResponseError{
			StatusCode: resp.StatusCode,
			Message:    envelopeMessage(body),
		}
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("%s: response exceeds %d bytes: %w", cat.ID, maxResponseBytes, apperr.ErrMalformedBody)
	}
	return body, nil
}

// envelopeMessage 尽量从错误响应体中取出 message 字段
func envelopeMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

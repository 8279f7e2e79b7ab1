package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/redis/go-redis/v9"
)

const (
	redisNamespace = "hotfeed:"
	redisOpTimeout = 3 * time.Second
)

// RedisKV 基于 Redis 的键值后端，所有 key 都落在 hotfeed: 命名空间下
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV 连接 Redis；ping 失败只打告警，与存储层“缓存不影响正确性”的约定一致
func NewRedisKV(addr string, logger *slog.Logger) *RedisKV {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.OrDefault(logger).Warn("redis ping failed", "addr", addr, "error", err)
	}
	return &RedisKV{rdb: rdb}
}

// NewRedisKVFromClient 复用已有客户端
func NewRedisKVFromClient(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

// Client 底层客户端，归档层复用同一连接
func (r *RedisKV) Client() *redis.Client {
	return r.rdb
}

func namespaced(key string) string {
	return redisNamespace + key
}

func (r *RedisKV) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	v, err := r.rdb.Get(ctx, namespaced(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	// 过期由 StorageManager 按写入时间戳惰性判断，这里不设置 Redis TTL
	if err := r.rdb.Set(ctx, namespaced(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := r.rdb.Del(ctx, namespaced(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	var keys []string
	iter := r.rdb.Scan(ctx, 0, namespaced(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisNamespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return keys, nil
}

// Clear 只删除命名空间内的 key，不做 FLUSHDB
func (r *RedisKV) Clear() error {
	keys, err := r.Keys("")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = namespaced(k)
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Close 关闭连接
func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

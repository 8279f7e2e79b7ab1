package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound key 不存在
var ErrNotFound = errors.New("storage: key not found")

// KV 本地键值存储的最小抽象，StorageManager 只依赖这几个操作
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	// Keys 返回以 prefix 开头的全部 key；prefix 为空返回全部
	Keys(prefix string) ([]string, error)
	// Clear 清空本存储命名空间内的全部 key
	Clear() error
}

// MemoryKV 进程内实现，默认后端，也用于测试
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKV) Clear() error {
	m.mu.Lock()
	m.data = make(map[string]string)
	m.mu.Unlock()
	return nil
}

package mocks

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MockCache is an in-memory region cache that records cleared regions.
type MockCache struct {
	mu     sync.Mutex
	values map[string][]byte

	ClearCalls []string
	ClearErr   error
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Get(_ context.Context, region, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.values[region+":"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *MockCache) Set(_ context.Context, region, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[region+":"+key] = data
	return nil
}

func (m *MockCache) Clear(_ context.Context, region string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls = append(m.ClearCalls, region)
	if m.ClearErr != nil {
		return m.ClearErr
	}
	for k := range m.values {
		if strings.HasPrefix(k, region+":") {
			delete(m.values, k)
		}
	}
	return nil
}

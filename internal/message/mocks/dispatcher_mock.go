package mocks

import (
	"context"
	"sync"

	"github.com/example/material-stock/internal/message"
)

// MockDispatcher records dispatched messages for assertions.
type MockDispatcher struct {
	mu sync.Mutex

	Messages    []message.Message
	DispatchErr error
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Dispatch(_ context.Context, msgs ...message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DispatchErr != nil {
		return m.DispatchErr
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

// OfType returns the recorded messages with the given type.
func (m *MockDispatcher) OfType(msgType string) []message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []message.Message
	for _, msg := range m.Messages {
		if msg.Type() == msgType {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
)

// MockEventSource is a mock implementation of bridge.EventSource that
// remembers the attached sink so tests can emit events through it
type MockEventSource struct {
	mock.Mock
	sink bridge.EventSink
}

// NewMockEventSource creates a new mock event source
func NewMockEventSource() *MockEventSource {
	return &MockEventSource{}
}

func (m *MockEventSource) Attach(sink bridge.EventSink) error {
	args := m.Called(sink)
	if args.Error(0) == nil {
		m.sink = sink
	}
	return args.Error(0)
}

// Emit delivers ev to the attached sink, if any
func (m *MockEventSource) Emit(ev bridge.NativeEvent) {
	if m.sink != nil {
		m.sink.Dispatch(ev)
	}
}

// EmitRaw decodes a raw native payload and delivers it
func (m *MockEventSource) EmitRaw(name string, payload []byte) error {
	ev, err := bridge.DecodeEvent(name, payload)
	if err != nil {
		return err
	}
	m.Emit(ev)
	return nil
}

package websocket

import (
	"errors"
	"sync"
	"time"
)

// MockConnection is an in-memory Connection for tests. Reads block until a
// message is queued or the connection is closed.
type MockConnection struct {
	mu      sync.Mutex
	written []MockMessage
	reads   chan MockMessage
	closed  chan struct{}
	once    sync.Once

	// WriteErr, when set, fails every write
	WriteErr error

	ReadLimit   int64
	PongHandler func(string) error
}

// MockMessage is one frame written to or read from a MockConnection
type MockMessage struct {
	Type int
	Data []byte
}

// NewMockConnection creates an open mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		reads:  make(chan MockMessage, 16),
		closed: make(chan struct{}),
	}
}

var errMockClosed = errors.New("connection closed")

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return errMockClosed
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.reads:
		return msg.Type, msg.Data, nil
	case <-m.closed:
		return 0, nil, errMockClosed
	}
}

func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string { return "127.0.0.1:52000" }

// Queue makes the next ReadMessage return data
func (m *MockConnection) Queue(messageType int, data []byte) {
	m.reads <- MockMessage{Type: messageType, Data: data}
}

// Written returns a copy of every frame written so far
func (m *MockConnection) Written() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.written...)
}

// Closed reports whether Close was called
func (m *MockConnection) Closed() bool {
	return m.isClosed()
}

func (m *MockConnection) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	conn := NewMockConnection()
	client := NewClient(NewHub(testLogger(), nil), conn, "trace-1", 0, testLogger())

	assert.NotEmpty(t, client.ID())
	assert.Equal(t, defaultPongWait, client.pongWait)
	assert.Equal(t, defaultPongWait*9/10, client.pingPeriod)
	assert.Equal(t, "127.0.0.1:52000", client.remoteAddr)
	assert.Equal(t, "trace-1", client.traceID)
}

func TestClientWritePump(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	conn := NewMockConnection()
	client := NewClient(hub, conn, "", time.Minute, testLogger())

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte(`{"type":"sources:reloaded"}`)
	close(client.send)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}

	written := conn.Written()
	require.Len(t, written, 2)
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.JSONEq(t, `{"type":"sources:reloaded"}`, string(written[0].Data))
	assert.Equal(t, websocket.CloseMessage, written[1].Type)
	assert.True(t, conn.Closed())
}

func TestClientWritePumpStopsOnError(t *testing.T) {
	conn := NewMockConnection()
	conn.WriteErr = errors.New("broken pipe")
	client := NewClient(NewHub(testLogger(), nil), conn, "", time.Minute, testLogger())

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()
	client.send <- []byte("x")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}
	assert.True(t, conn.Closed())
}

func TestClientReadPumpUnregisters(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	hub.Start()
	defer hub.Stop()

	conn := NewMockConnection()
	client := NewClient(hub, conn, "", time.Minute, testLogger())
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	conn.Queue(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not stop")
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(maxMessageSize), conn.ReadLimit)
}

package websocket

import (
	"sync"
	"time"
)

// Stats tracks one hub's connection and delivery counters
type Stats struct {
	mu sync.RWMutex

	TotalConnections  int64
	ActiveConnections int64
	MaxConcurrent     int64
	AvgConnectionTime time.Duration

	MessagesSent    int64
	BytesSent       int64
	Broadcasts      int64
	DroppedMessages int64
	SlowClients     int64

	startedAt       time.Time
	connectionTimes []time.Duration
}

// NewStats creates zeroed stats
func NewStats() *Stats {
	return &Stats{
		startedAt:       time.Now(),
		connectionTimes: make([]time.Duration, 0, 100),
	}
}

// RecordConnection counts a registered client
func (s *Stats) RecordConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalConnections++
	s.ActiveConnections++
	if s.ActiveConnections > s.MaxConcurrent {
		s.MaxConcurrent = s.ActiveConnections
	}
}

// RecordDisconnection counts a departed client. The average covers the last
// 100 connections.
func (s *Stats) RecordDisconnection(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ActiveConnections > 0 {
		s.ActiveConnections--
	}

	s.connectionTimes = append(s.connectionTimes, duration)
	if len(s.connectionTimes) > 100 {
		s.connectionTimes = s.connectionTimes[1:]
	}

	var total time.Duration
	for _, d := range s.connectionTimes {
		total += d
	}
	s.AvgConnectionTime = total / time.Duration(len(s.connectionTimes))
}

// RecordBroadcast counts one fan-out of size bytes to delivered clients
func (s *Stats) RecordBroadcast(size int, delivered, slow int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Broadcasts++
	s.MessagesSent += int64(delivered)
	s.BytesSent += int64(size * delivered)
	s.SlowClients += int64(slow)
}

// RecordDroppedMessage counts a broadcast rejected by a full queue
func (s *Stats) RecordDroppedMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DroppedMessages++
}

// Snapshot returns the counters as a JSON-friendly map
func (s *Stats) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"connections": map[string]interface{}{
			"total":           s.TotalConnections,
			"active":          s.ActiveConnections,
			"max_concurrent":  s.MaxConcurrent,
			"avg_duration_ms": s.AvgConnectionTime.Milliseconds(),
		},
		"messages": map[string]interface{}{
			"broadcasts":   s.Broadcasts,
			"sent":         s.MessagesSent,
			"bytes_sent":   s.BytesSent,
			"dropped":      s.DroppedMessages,
			"slow_clients": s.SlowClients,
		},
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	}
}

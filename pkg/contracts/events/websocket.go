// Package events names the messages the ejiview server pushes over /ws.
//
// Every message is a JSON object:
//
//	{"type": "...", "data": {...}, "timestamp": "RFC 3339", "trace_id": "..."}
//
// Clients only listen; anything they send is discarded.
package events

// ProtocolVersion is bumped when a message type or payload key changes
const ProtocolVersion = "1.0"

// MessageType names a WebSocket message
type MessageType string

const (
	// MessageTypeConnection greets a client right after it registers.
	// Data keys: status, client_id.
	MessageTypeConnection MessageType = "connection"

	// MessageTypeSourcesReloaded follows every successful reload.
	// Data keys: sources (sorted names), loaded_at (RFC 3339), trace_id.
	MessageTypeSourcesReloaded MessageType = "sources:reloaded"
)

// String returns the wire form of t
func (t MessageType) String() string { return string(t) }

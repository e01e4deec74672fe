package config

import "time"

// Application constants
const (
	// Application Info
	AppName   = "ejiview"
	AppVendor = "EJI Visualization (NM)"

	// Server
	DefaultPort           = 8080
	DefaultRequestTimeout = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultExportsDir = "data/exports"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Data loading
	DefaultLoadTimeout = 2 * time.Minute

	// DefaultNoDataValue marks a suppressed estimate in EJI releases
	DefaultNoDataValue = -999
)

// DefaultKeyCandidates are tried when a source names no entity-key columns
var DefaultKeyCandidates = []string{"County", "COUNTY", "State", "STATE", "Location", "Name", "GEOID"}

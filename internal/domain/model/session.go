package model

// ServerVersion is reported in the session handshake.
var ServerVersion = "0.0.0"

// ConnectedPayload is sent to a host session right after it is registered.
type ConnectedPayload struct {
	Ok            bool     `json:"ok"`
	ConnectionID  string   `json:"connection_id"`
	ServerVersion string   `json:"server_version"`
	Vocabulary    []string `json:"vocabulary"`
}

// DisconnectedPayload is the last frame before the server closes a session.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"` // "SHUTDOWN", "EVICTED", "SLOW_CONSUMER"
}

// SessionMetadata describes the host runtime behind a session.
type SessionMetadata struct {
	Transport string
	Platform  string
	Version   string
	RemoteIP  string
	UserAgent string
}

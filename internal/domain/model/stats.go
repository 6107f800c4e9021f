package model

import "time"

// BridgeStats is the point-in-time view served on /stats and drawn by the monitor.
type BridgeStats struct {
	Attached       bool                  `json:"attached"`
	Policy         string                `json:"policy"`
	Uptime         time.Duration         `json:"uptime"`
	Sessions       int                   `json:"sessions"`
	MailboxDepth   int                   `json:"mailbox_depth"`
	MailboxSize    int                   `json:"mailbox_size"`
	ParkedDisplays int                   `json:"parked_displays"`
	Events         map[string]EventStats `json:"events"`
}

type EventStats struct {
	Listeners  int    `json:"listeners"`
	Observing  bool   `json:"observing"`
	Emitted    uint64 `json:"emitted"`
	Delivered  uint64 `json:"delivered"`
	Dropped    uint64 `json:"dropped"`
	Degraded   uint64 `json:"degraded"`
	SendFailed uint64 `json:"send_failed"`
}

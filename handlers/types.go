package handlers

import "time"

// SessionInfo is one session in API responses.
type SessionInfo struct {
	Key          string    `json:"key"`
	Url          string    `json:"url"`
	InstanceId   string    `json:"instance_id,omitempty"`
	State        string    `json:"state"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// StatusEventInfo is one recent-activity entry in API responses.
type StatusEventInfo struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// SessionsResponse is the JSON shape of GET /v1/sessions: the current sessions plus a
// short newest-first feed of recent lifecycle events.
type SessionsResponse struct {
	Sessions []SessionInfo     `json:"sessions"`
	Events   []StatusEventInfo `json:"events"`
}

// HealthResponse is the JSON shape of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

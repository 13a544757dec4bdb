package domain

import (
	"fmt"
	"time"
)

// InstanceState is the lifecycle state of a workload instance.
// Allowed transitions are defined by CanTransition.
type InstanceState string

const (
	// StateProvisioning means the container has been reserved (and possibly started) but is not confirmed serving yet.
	StateProvisioning InstanceState = "provisioning"
	// StateReady means the runtime reported the container running and it is routable.
	StateReady InstanceState = "ready"
	// StateDraining means the instance is being taken out of service; its route is retracted before the container stops.
	StateDraining InstanceState = "draining"
	// StateStopped means the runtime confirmed teardown; the entry is kept only for the stop grace period.
	StateStopped InstanceState = "stopped"
	// StateFailed means provisioning failed or the container died; the entry is removed immediately.
	StateFailed InstanceState = "failed"
)

// Terminal reports whether the state ends the instance lifecycle (only removal may follow).
//
// Returns: true for stopped and failed, false otherwise.
//
// Called from service.Registry when deciding whether a key slot can be re-reserved.
func (s InstanceState) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// CanTransition reports whether the state machine allows moving from one state to another:
// provisioning→ready|failed, ready→draining|failed, draining→stopped. Everything else is rejected.
//
// Parameters: from — current state; to — requested state.
//
// Returns: true when the edge exists in the lifecycle state machine.
//
// Called from service.Registry.Transition and service.Registry.MarkReady before applying a mutation.
func CanTransition(from, to InstanceState) bool {
	switch from {
	case StateProvisioning:
		return to == StateReady || to == StateFailed
	case StateReady:
		return to == StateDraining || to == StateFailed
	case StateDraining:
		return to == StateStopped
	default:
		return false
	}
}

// WorkloadInstance represents one running backend unit managed by the controller.
// ID is assigned by the container runtime and immutable once bound; Key is the logical
// routing key (one non-terminal instance per key); Address is host:port, usable once ready.
// The authoritative copy lives in service.Registry — all other components receive value copies.
type WorkloadInstance struct {
	ID           string
	Key          string
	State        InstanceState
	Address      string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// SessionRecord is the journal entry mirrored to Redis for every ready instance so a
// restarted controller can re-adopt still-running containers instead of leaking them.
type SessionRecord struct {
	Key        string    `json:"key"`
	InstanceID string    `json:"instance_id"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatusEvent is one entry of the controller's recent-activity feed, served alongside
// the session list so an operator sees what happened without scraping logs.
type StatusEvent struct {
	At      time.Time
	Message string
}

// SessionPathPrefix is the path segment the reverse proxy forwards to the controller
// and under which every instance route is published.
const SessionPathPrefix = "/session/"

// SessionPath returns the path prefix routed to the instance for the given key, e.g. "/session/ab12cd34".
func SessionPath(key string) string {
	return SessionPathPrefix + key
}

// maxSessionKeyLen bounds keys so container names and label values stay valid.
const maxSessionKeyLen = 63

// ValidateSessionKey checks that the key is non-empty, at most 63 chars and contains only
// lowercase letters, digits and hyphens. Anything else is rejected before it can reach a
// container name, a Traefik rule or a runtime command (the HTTP surface must not pass
// raw caller input to the runtime socket).
//
// Parameter key — routing key from the request path or generated by helpers.NewSessionKey.
//
// Returns: nil when valid; descriptive error otherwise.
//
// Called from handlers.HTTPServer on every key-scoped request and from service.LifecycleManager.EnsureReady.
func ValidateSessionKey(key string) error {
	if key == "" {
		return fmt.Errorf("session key must be non-empty")
	}
	if len(key) > maxSessionKeyLen {
		return fmt.Errorf("session key must be at most %d characters", maxSessionKeyLen)
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return fmt.Errorf("session key may contain only [a-z0-9-], got %q", key)
		}
	}
	return nil
}

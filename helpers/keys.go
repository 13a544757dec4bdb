package helpers

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionKey returns a short unique routing key: the first group of a random UUID
// (8 hex characters), which always satisfies domain.ValidateSessionKey and keeps
// container names and route rules readable.
//
// Returns: e.g. "9f3ab02c".
//
// Called from handlers.HTTPServer.LaunchSession for each new session.
func NewSessionKey() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

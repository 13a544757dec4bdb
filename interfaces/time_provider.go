package interfaces

import "time"

// TimeProvider supplies the current time for instance timestamps, idle-reap decisions and
// the stop grace period. Injected so tests can drive the idle sweep with a fixed clock.
//
// Constructed in cmd/main as service.NewTimeProvider(func() time.Time { return time.Now().UTC() }).
//
//go:generate moq -stub -out mock/time_provider.go -pkg mock . TimeProvider
type TimeProvider interface {
	// Now returns the current time (UTC in prod; fixed in tests).
	Now() time.Time
}

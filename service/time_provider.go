package service

import (
	"time"

	"mycontroller/helpers"
	"mycontroller/interfaces"
)

// timeProvider implements interfaces.TimeProvider. It returns the current time via the
// injected now func. Used by the Registry for instance timestamps and by the
// LifecycleManager for idle-reap and grace-period decisions. Built in cmd/main with
// time.Now().UTC; tests inject a fixed clock.
type timeProvider struct {
	now func() time.Time
}

// NewTimeProvider creates a TimeProvider that returns time via the given now func. Panics on nil now.
//
// Parameter now — no-arg function returning current time (in prod — time.Now().UTC, in tests — fixed time).
//
// Returns: interfaces.TimeProvider (*timeProvider).
//
// Called from cmd/main when building the controller.
func NewTimeProvider(now func() time.Time) interfaces.TimeProvider {
	return &timeProvider{now: helpers.NilPanic(now, "service.time_provider.go: now is required")}
}

// Now returns current time from the injected function.
func (t *timeProvider) Now() time.Time {
	return t.now()
}

package interfaces

import (
	"context"

	"mycontroller/domain"
)

// SessionController is the surface the HTTP handlers use to resolve requests to instances.
// It never exposes raw runtime operations — only key-scoped ensure/stop/list — so the
// controller's HTTP port does not leak runtime-admin privilege.
//
// Implemented by service.LifecycleManager. Called from handlers.HTTPServer.
//
//go:generate moq -stub -out mock/controller.go -pkg mock . SessionController
type SessionController interface {
	// EnsureReady resolves key to a ready instance, reserving and provisioning one when
	// absent. Blocks (bounded by the provisioning timeout and ctx) until the instance is
	// ready; request cancellation abandons the wait but never the in-flight provisioning.
	// Returns: (instance, nil) with a usable Address on success; service.ErrProvisioningTimeout
	// when the runtime never reported readiness in time; service.ErrInstanceDraining when the
	// key's instance is on its way out; other errors wrapped as service.MyError.
	EnsureReady(ctx context.Context, key string) (domain.WorkloadInstance, error)

	// Stop explicitly drains the instance for key (route retracted, container stopped).
	// Returns: nil on success; entity_not_found MyError for an unknown key.
	Stop(ctx context.Context, key string) error

	// Sessions returns a snapshot of all known instances, ordered by key.
	Sessions() []domain.WorkloadInstance

	// Events returns the recent lifecycle events (launches, failures, teardowns),
	// newest first, capped to a short fixed history.
	Events() []domain.StatusEvent

	// OnBackendFailure schedules a readiness re-check for the instance after a forward
	// failed mid-request. The instance is failed only if the runtime confirms it is not
	// running, so one transient connection error does not flap the route.
	OnBackendFailure(instanceID string)
}

package interfaces

import (
	"context"

	"mycontroller/domain"
)

// Runtime is the thin abstraction over the container-runtime socket. All operations are
// idempotent against a missing container (treated as already stopped, never an error) so
// bookkeeping tolerates races with manual intervention on the host.
//
// Implemented by mydocker.DockerRuntime. Called from service.LifecycleManager for
// provisioning, readiness polling, stop/remove and the event watch loop.
//
//go:generate moq -stub -out mock/runtime.go -pkg mock . Runtime
type Runtime interface {
	// Start creates and starts a container from the spec.
	// Returns: (runtime-assigned instance id, nil) on success; ("", error) when the image
	// cannot run or the create/start call fails (a half-created container is removed best-effort).
	// Called from service.LifecycleManager.provision, once per reservation.
	Start(ctx context.Context, spec domain.StartSpec) (string, error)

	// Inspect reports the current runtime status of the instance. A missing container
	// yields (RuntimeStatus{Running: false}, nil).
	// Called from the readiness poll, RecheckReadiness and crash recovery.
	Inspect(ctx context.Context, instanceID string) (domain.RuntimeStatus, error)

	// Stop requests a bounded-timeout stop. Missing container is nil, not an error.
	// Called from service.LifecycleManager when draining an instance.
	Stop(ctx context.Context, instanceID string) error

	// Remove force-removes the container. Missing container is nil, not an error.
	// Called after the stop grace period and when cleaning up failed provisioning.
	Remove(ctx context.Context, instanceID string) error

	// Watch subscribes to lifecycle events for managed containers. The event channel is
	// closed when ctx is done or the runtime drops the stream; the error channel reports
	// why. Each call is a fresh subscription, so the watch loop can resubscribe after errors.
	// Called from service.LifecycleManager.Run.
	Watch(ctx context.Context) (<-chan domain.RuntimeEvent, <-chan error)
}

package domain

// RuntimeStatus is the result of inspecting one instance at the container runtime.
// A missing container is reported as not running, never as an error, so controller
// bookkeeping tolerates races with manual intervention.
type RuntimeStatus struct {
	// Running is true while the runtime reports the container alive.
	Running bool
	// Address is the instance endpoint host:port on the controller network; empty until
	// the runtime has assigned one and always empty when not running.
	Address string
	// ExitCode is the container exit code; meaningful only when Running is false and the
	// container actually exited (0 otherwise).
	ExitCode int
}

// RuntimeEventAction classifies a container lifecycle event from the runtime watch stream.
type RuntimeEventAction string

const (
	EventDie     RuntimeEventAction = "die"
	EventStop    RuntimeEventAction = "stop"
	EventDestroy RuntimeEventAction = "destroy"
)

// RuntimeEvent is one lifecycle event for a managed container, delivered by
// interfaces.Runtime.Watch and consumed by the lifecycle manager's watch loop.
type RuntimeEvent struct {
	InstanceID string
	Action     RuntimeEventAction
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/interfaces"
)

// ErrInvalidTransition is returned by Transition and MarkReady when the requested state
// change is not allowed by the lifecycle state machine. The operation is rejected and
// registry state is left unchanged.
var ErrInvalidTransition = errors.New("invalid instance state transition")

// ErrUnknownInstance is returned when the key or instance id is not present in the registry.
var ErrUnknownInstance = errors.New("unknown instance")

// registryEntry is the authoritative record for one key. ready is closed exactly once,
// on the first transition out of provisioning (ready or failed); err is set before the
// close when the instance failed, so waiters can distinguish the two.
type registryEntry struct {
	inst        domain.WorkloadInstance
	ready       chan struct{}
	readyClosed bool
	err         error
}

// Registry is the in-memory authoritative table of workload instances, keyed by routing
// key with a secondary index by runtime id. It is the only mutable shared state in the
// controller: the lifecycle manager, publisher and dispatcher all communicate through it.
// One mutex guards the maps; it is held only for the lookup-or-create decision and for
// individual field mutations, never across provisioning, so slow container starts for one
// key don't block requests for other keys.
type Registry struct {
	clock interfaces.TimeProvider

	mu    sync.Mutex
	byKey map[string]*registryEntry
	byID  map[string]*registryEntry
}

// NewRegistry creates an empty registry. Panics on nil clock.
//
// Parameter clock — time source for CreatedAt/LastActiveAt stamps.
//
// Returns: *Registry.
//
// Called from cmd/main when building the controller.
func NewRegistry(clock interfaces.TimeProvider) *Registry {
	return &Registry{
		clock: helpers.NilPanic(clock, "service.registry.go: clock is required"),
		byKey: make(map[string]*registryEntry),
		byID:  make(map[string]*registryEntry),
	}
}

// Reserve atomically creates a provisioning entry for key if absent and returns the
// existing entry otherwise. This is the mutual-exclusion point that prevents duplicate
// provisioning: for any number of concurrent Reserve calls with the same key, exactly one
// caller observes created == true. The returned ReadyWaiter is pinned to the entry
// observed here, so the caller can wait on it even if the entry fails and is removed
// before the wait begins.
//
// Parameter key — validated routing key.
//
// Returns: (instance copy, true, waiter) when this call created the reservation;
// (instance copy, false, waiter) when an entry for key already existed in any state.
//
// Called from LifecycleManager.EnsureReady for every dispatched request and from Recover
// when re-adopting containers.
func (r *Registry) Reserve(key string) (domain.WorkloadInstance, bool, *ReadyWaiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byKey[key]; ok {
		return e.inst, false, &ReadyWaiter{registry: r, entry: e}
	}
	now := r.clock.Now()
	e := &registryEntry{
		inst: domain.WorkloadInstance{
			Key:          key,
			State:        domain.StateProvisioning,
			CreatedAt:    now,
			LastActiveAt: now,
		},
		ready: make(chan struct{}),
	}
	r.byKey[key] = e
	return e.inst, true, &ReadyWaiter{registry: r, entry: e}
}

// Lookup returns the instance for key, if any.
func (r *Registry) Lookup(key string) (domain.WorkloadInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[key]
	if !ok {
		return domain.WorkloadInstance{}, false
	}
	return e.inst, true
}

// BindID records the runtime-assigned id for the key's instance. The id is immutable
// once bound and becomes the handle for Transition/MarkReady.
//
// Parameters: key — reserved routing key; id — id returned by Runtime.Start.
//
// Returns: nil on success; ErrUnknownInstance when key is not reserved; error when the
// entry already carries an id or the id is already bound to another entry.
//
// Called from LifecycleManager.provision right after Runtime.Start and from Recover when
// re-adopting containers.
func (r *Registry) BindID(key, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[key]
	if !ok {
		return fmt.Errorf("bind %s: %w", key, ErrUnknownInstance)
	}
	if e.inst.ID != "" {
		return fmt.Errorf("bind %s: id already bound to %s", key, e.inst.ID)
	}
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("bind %s: id %s already bound to another key", key, id)
	}
	e.inst.ID = id
	r.byID[id] = e
	return nil
}

// MarkReady transitions the instance to ready, binds its address and wakes all waiters.
// This is the only path into the ready state: a ready instance must always carry a
// usable address.
//
// Parameters: id — bound runtime id; address — endpoint host:port.
//
// Returns: nil on success; ErrUnknownInstance for an unknown id; ErrInvalidTransition
// when the instance is not provisioning.
//
// Called from LifecycleManager.provision once the runtime reports the container serving,
// and from Recover for re-adopted containers.
func (r *Registry) MarkReady(id, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("mark ready %s: %w", id, ErrUnknownInstance)
	}
	if !domain.CanTransition(e.inst.State, domain.StateReady) {
		return fmt.Errorf("mark ready %s: %s -> %s: %w", id, e.inst.State, domain.StateReady, ErrInvalidTransition)
	}
	e.inst.State = domain.StateReady
	e.inst.Address = address
	e.inst.LastActiveAt = r.clock.Now()
	r.closeReadyLocked(e)
	return nil
}

// Transition moves the instance to a new state after validating the edge against the
// lifecycle state machine. Transitions to ready are rejected here (MarkReady owns that
// edge because it requires an address). A transition to failed is terminal: waiters are
// woken with the failure and the entry is removed immediately.
//
// Parameters: id — bound runtime id; to — target state.
//
// Returns: (updated instance copy, nil) on success; ErrUnknownInstance for an unknown id;
// ErrInvalidTransition for a disallowed edge (state left unchanged, caller logs).
//
// Called from LifecycleManager on drain (ready→draining), stop confirmation
// (draining→stopped) and runtime crash events (ready→failed).
func (r *Registry) Transition(id string, to domain.InstanceState) (domain.WorkloadInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return domain.WorkloadInstance{}, fmt.Errorf("transition %s: %w", id, ErrUnknownInstance)
	}
	if to == domain.StateReady {
		return e.inst, fmt.Errorf("transition %s to ready requires an address, use MarkReady: %w", id, ErrInvalidTransition)
	}
	if !domain.CanTransition(e.inst.State, to) {
		return e.inst, fmt.Errorf("transition %s: %s -> %s: %w", id, e.inst.State, to, ErrInvalidTransition)
	}
	e.inst.State = to
	e.inst.LastActiveAt = r.clock.Now()
	if to == domain.StateFailed {
		if e.err == nil {
			e.err = fmt.Errorf("instance %s failed", id)
		}
		r.closeReadyLocked(e)
		r.removeLocked(e)
	}
	return e.inst, nil
}

// Fail terminates the key's instance from any stage, including before a runtime id is
// bound (start errors, provisioning timeout): waiters are woken with cause, the entry is
// marked failed and removed immediately. Failing an unknown key is a no-op so teardown
// races resolve silently.
//
// Parameters: key — routing key; cause — error surfaced to all waiting requests.
//
// Returns: the removed instance copy and true when an entry existed.
//
// Called only from LifecycleManager.provision (start error, bind refusal, container exit,
// timeout); paths that know the runtime id use Transition(id, failed) instead.
func (r *Registry) Fail(key string, cause error) (domain.WorkloadInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[key]
	if !ok {
		return domain.WorkloadInstance{}, false
	}
	e.inst.State = domain.StateFailed
	e.inst.LastActiveAt = r.clock.Now()
	if e.err == nil {
		e.err = cause
	}
	r.closeReadyLocked(e)
	r.removeLocked(e)
	return e.inst, true
}

// Touch bumps the instance's LastActiveAt so the idle sweep does not reap an instance
// that is still serving traffic. Unknown keys are ignored.
//
// Called from LifecycleManager.EnsureReady on every dispatched request.
func (r *Registry) Touch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byKey[key]; ok {
		e.inst.LastActiveAt = r.clock.Now()
	}
}

// Remove deletes the instance from the registry. Used after the stop grace period;
// failed instances are removed by Transition/Fail themselves.
//
// Returns: the removed instance copy and true when an entry existed.
func (r *Registry) Remove(id string) (domain.WorkloadInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return domain.WorkloadInstance{}, false
	}
	r.removeLocked(e)
	return e.inst, true
}

// Snapshot returns copies of all instances ordered by key, for the publisher, the idle
// sweep and the list endpoint.
func (r *Registry) Snapshot() []domain.WorkloadInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WorkloadInstance, 0, len(r.byKey))
	for _, e := range r.byKey {
		out = append(out, e.inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ReadyWaiter is the wait handle Reserve hands out for one reservation. It pins the
// entry it was created from, so a waiter observes the recorded failure cause even when
// the failed entry has already been removed from the registry maps. Safe for concurrent
// use by any number of waiters on the same entry.
type ReadyWaiter struct {
	registry *Registry
	entry    *registryEntry
}

// Wait blocks until the instance leaves provisioning or ctx is done. The wait holds no
// registry lock. When provisioning failed, the failure cause recorded by Fail/Transition
// is returned; a cancelled or expired ctx abandons the wait without affecting the
// in-flight provisioning.
//
// Parameter ctx — bounds the wait (the caller applies the provisioning timeout).
//
// Returns: (instance copy, nil) once the instance left provisioning (caller re-checks the
// state — it may already be draining); (zero, failure cause) when provisioning failed;
// (zero, ctx.Err()) when the wait was abandoned.
//
// Called from LifecycleManager.EnsureReady for every request that finds the instance
// still provisioning.
func (w *ReadyWaiter) Wait(ctx context.Context) (domain.WorkloadInstance, error) {
	select {
	case <-w.entry.ready:
	case <-ctx.Done():
		return domain.WorkloadInstance{}, ctx.Err()
	}

	w.registry.mu.Lock()
	defer w.registry.mu.Unlock()
	if w.entry.err != nil {
		return domain.WorkloadInstance{}, w.entry.err
	}
	return w.entry.inst, nil
}

// closeReadyLocked wakes waiters exactly once. Caller must hold r.mu.
func (r *Registry) closeReadyLocked(e *registryEntry) {
	if !e.readyClosed {
		close(e.ready)
		e.readyClosed = true
	}
}

// removeLocked drops the entry from both indexes. Caller must hold r.mu.
func (r *Registry) removeLocked(e *registryEntry) {
	delete(r.byKey, e.inst.Key)
	if e.inst.ID != "" {
		delete(r.byID, e.inst.ID)
	}
}

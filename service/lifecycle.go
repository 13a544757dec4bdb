package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// ErrProvisioningTimeout is returned (wrapped in a service_unavailable MyError) when the
// runtime did not report readiness within the provisioning timeout. The instance is moved
// to failed and removed; the next request for the key re-triggers provisioning.
var ErrProvisioningTimeout = errors.New("provisioning timed out")

// ErrInstanceDraining is returned (wrapped in a service_unavailable MyError) when the
// key's instance is draining or stopped: the slot is occupied until teardown completes,
// so no new instance may be provisioned for the key yet.
var ErrInstanceDraining = errors.New("instance is draining")

const (
	// recheckTimeout bounds the inspect issued after a mid-request forward failure.
	recheckTimeout = 5 * time.Second
	// cleanupTimeout bounds best-effort stop/remove of containers that failed provisioning.
	cleanupTimeout = 30 * time.Second
	// watchBackoffMax caps the resubscribe backoff of the runtime event watch loop.
	watchBackoffMax = 30 * time.Second
)

// LifecycleConfig carries the externally supplied timing knobs (validated in cmd.LoadConfig).
type LifecycleConfig struct {
	// ProvisionTimeout bounds start + readiness; drives the provisioning→failed edge.
	ProvisionTimeout time.Duration
	// IdleTimeout is the inactivity threshold after which a ready instance is drained.
	IdleTimeout time.Duration
	// SweepInterval is the period of the idle-reap sweep.
	SweepInterval time.Duration
	// StopGrace is how long a stopped instance stays visible in the registry before removal.
	StopGrace time.Duration
	// PollInterval is the readiness poll period during provisioning.
	PollInterval time.Duration
}

// LifecycleManager drives all instance state transitions through the Registry: on-demand
// provisioning with a bounded readiness poll, the periodic idle-reap sweep, the runtime
// event watch loop and crash recovery from the session journal. It implements
// interfaces.SessionController for the HTTP handlers. All transitions for one instance
// are serialized by the Registry; provisioning happens outside any lock.
type LifecycleManager struct {
	registry  *Registry
	runtime   interfaces.Runtime
	publisher *RoutePublisher
	journal   interfaces.Cache[domain.SessionRecord]
	template  domain.WorkloadTemplate
	cfg       LifecycleConfig
	clock     interfaces.TimeProvider
	logger    log.Logger
	status    statusLog
}

var _ interfaces.SessionController = &LifecycleManager{}

// NewLifecycleManager creates the lifecycle manager. Panics on nil registry, runtime,
// publisher, clock or logger; journal may be nil (REDIS_ADDR unset — recovery disabled).
//
// Parameters: registry — authoritative instance table; runtime — container runtime
// client; publisher — route publisher triggered on transitions; journal — session
// journal or nil; template — workload template; cfg — timing knobs; clock — time source;
// logger — logger.
//
// Returns: *LifecycleManager.
//
// Called from cmd/main when building the controller.
func NewLifecycleManager(
	registry *Registry,
	runtime interfaces.Runtime,
	publisher *RoutePublisher,
	journal interfaces.Cache[domain.SessionRecord],
	template domain.WorkloadTemplate,
	cfg LifecycleConfig,
	clock interfaces.TimeProvider,
	logger log.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		registry:  helpers.NilPanic(registry, "service.lifecycle.go: registry is required"),
		runtime:   helpers.NilPanic(runtime, "service.lifecycle.go: runtime is required"),
		publisher: helpers.NilPanic(publisher, "service.lifecycle.go: publisher is required"),
		journal:   journal,
		template:  template,
		cfg:       cfg,
		clock:     helpers.NilPanic(clock, "service.lifecycle.go: clock is required"),
		logger:    log.With(helpers.NilPanic(logger, "service.lifecycle.go: logger is required"), "component", "lifecycle"),
	}
}

// EnsureReady resolves key to a ready instance, provisioning one when the key is unseen.
// The reservation is the only mutual-exclusion point: concurrent calls for the same key
// all wait on the same entry and exactly one Runtime.Start is issued. The wait is bounded
// by the provisioning timeout and the caller's ctx; caller cancellation abandons the wait
// but never the in-flight provisioning, which runs on a background context and may still
// make the instance ready for a later request.
//
// Parameters: ctx — request context; key — routing key from the request path.
//
// Returns: (ready instance with usable Address, nil); bad_parameter MyError for an
// invalid key; service_unavailable MyError wrapping ErrProvisioningTimeout or
// ErrInstanceDraining; ctx.Err() when the caller went away.
//
// Called from handlers.HTTPServer on every dispatched request and on session launch.
func (m *LifecycleManager) EnsureReady(ctx context.Context, key string) (domain.WorkloadInstance, error) {
	if err := domain.ValidateSessionKey(key); err != nil {
		return domain.WorkloadInstance{}, NewBadParameterError("invalid session key", err)
	}

	inst, created, waiter := m.registry.Reserve(key)
	if created {
		go m.provision(key)
	} else {
		switch inst.State {
		case domain.StateReady:
			m.registry.Touch(key)
			return inst, nil
		case domain.StateDraining, domain.StateStopped:
			return domain.WorkloadInstance{}, NewServiceUnavailableError(
				"session is shutting down",
				fmt.Errorf("key %s: %w", key, ErrInstanceDraining),
			)
		}
		// Provisioning: join the existing wait.
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ProvisionTimeout)
	defer cancel()
	inst, err := waiter.Wait(waitCtx)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return domain.WorkloadInstance{}, err
		case errors.Is(err, context.DeadlineExceeded):
			return domain.WorkloadInstance{}, NewServiceUnavailableError(
				"instance was not ready in time",
				fmt.Errorf("key %s: %w", key, ErrProvisioningTimeout),
			)
		default:
			return domain.WorkloadInstance{}, NewServiceUnavailableError("provisioning failed", err)
		}
	}
	if inst.State != domain.StateReady {
		return domain.WorkloadInstance{}, NewServiceUnavailableError(
			"session is shutting down",
			fmt.Errorf("key %s: %w", key, ErrInstanceDraining),
		)
	}
	m.registry.Touch(key)
	return inst, nil
}

// provision starts the container for key and gates the ready transition on a readiness
// poll bounded by the provisioning timeout. Runs in its own goroutine on a background
// context — request cancellation never reaches it. Start errors are not retried: the
// entry is failed and removed so the next request re-triggers provisioning. Transient
// inspect errors during the poll are retried until the deadline.
func (m *LifecycleManager) provision(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ProvisionTimeout)
	defer cancel()
	logger := log.With(m.logger, "key", key)

	m.status.Record(m.clock.Now(), "launching session %s", key)

	id, err := m.runtime.Start(ctx, m.template.StartSpec(key))
	if err != nil {
		level.Error(logger).Log("msg", "workload start failed", "err", err)
		m.status.Record(m.clock.Now(), "session %s failed to start: %v", key, err)
		m.registry.Fail(key, fmt.Errorf("start workload: %w", err))
		return
	}
	logger = log.With(logger, "instance_id", id)

	if err := m.registry.BindID(key, id); err != nil {
		// Bookkeeping refused the id; stop the orphan so it cannot leak.
		level.Error(logger).Log("msg", "bind instance id failed", "err", err)
		m.registry.Fail(key, err)
		m.teardownContainer(id)
		return
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		st, inspectErr := m.runtime.Inspect(ctx, id)
		switch {
		case inspectErr != nil:
			level.Warn(logger).Log("msg", "readiness inspect failed, retrying", "err", inspectErr)
		case st.Running && st.Address != "":
			if err := m.registry.MarkReady(id, st.Address); err != nil {
				level.Error(logger).Log("msg", "mark ready rejected", "err", err)
				m.teardownContainer(id)
				return
			}
			level.Info(logger).Log("msg", "instance ready", "address", st.Address)
			m.status.Record(m.clock.Now(), "session %s ready at %s", key, st.Address)
			m.journalWrite(ctx, key, id, st.Address)
			m.publish(ctx)
			return
		case !st.Running:
			level.Error(logger).Log("msg", "container exited during provisioning", "exit_code", st.ExitCode)
			m.status.Record(m.clock.Now(), "session %s exited during provisioning (code %d)", key, st.ExitCode)
			m.registry.Fail(key, fmt.Errorf("container exited during provisioning with code %d", st.ExitCode))
			m.teardownContainer(id)
			return
		}

		select {
		case <-ctx.Done():
			level.Error(logger).Log("msg", "provisioning timed out")
			m.status.Record(m.clock.Now(), "session %s provisioning timed out", key)
			m.registry.Fail(key, fmt.Errorf("key %s: %w", key, ErrProvisioningTimeout))
			m.teardownContainer(id)
			return
		case <-ticker.C:
		}
	}
}

// Stop explicitly drains the instance for key: route retracted, container stopped, entry
// kept as stopped until the grace period elapses.
//
// Parameters: ctx — request context; key — routing key.
//
// Returns: nil when the instance was drained or is already on its way out;
// entity_not_found MyError for an unknown key; service_unavailable MyError when the
// instance is still provisioning (retry once it is ready).
//
// Called from handlers.HTTPServer.StopSession.
func (m *LifecycleManager) Stop(ctx context.Context, key string) error {
	if err := domain.ValidateSessionKey(key); err != nil {
		return NewBadParameterError("invalid session key", err)
	}
	inst, ok := m.registry.Lookup(key)
	if !ok {
		return NewEntityNotFoundError(fmt.Sprintf("no session for key %s", key), nil)
	}
	switch inst.State {
	case domain.StateReady:
		m.drain(ctx, inst)
		return nil
	case domain.StateProvisioning:
		return NewServiceUnavailableError("session is still provisioning, retry shortly", nil)
	default:
		// Draining or stopped already.
		return nil
	}
}

// Sessions returns the registry snapshot ordered by key.
func (m *LifecycleManager) Sessions() []domain.WorkloadInstance {
	return m.registry.Snapshot()
}

// Events returns the recent lifecycle events, newest first.
func (m *LifecycleManager) Events() []domain.StatusEvent {
	return m.status.Recent()
}

// OnBackendFailure schedules an asynchronous readiness re-check after a forward to the
// instance failed mid-request. Only a runtime-confirmed dead container is failed; a
// transient connection error or inspect error leaves the instance ready so a single
// hiccup does not flap the route.
//
// Parameter instanceID — runtime id of the instance the forward failed against.
//
// Called from handlers.HTTPServer's proxy error handler.
func (m *LifecycleManager) OnBackendFailure(instanceID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recheckTimeout)
		defer cancel()
		st, err := m.runtime.Inspect(ctx, instanceID)
		if err != nil {
			level.Warn(m.logger).Log("msg", "post-failure inspect failed, keeping instance", "instance_id", instanceID, "err", err)
			return
		}
		if st.Running {
			return
		}
		inst, err := m.registry.Transition(instanceID, domain.StateFailed)
		if err != nil {
			// Already draining/stopped/removed; nothing to do.
			return
		}
		level.Error(m.logger).Log("msg", "instance confirmed dead after forward failure", "instance_id", instanceID, "key", inst.Key)
		m.status.Record(m.clock.Now(), "session %s unresponsive and confirmed dead", inst.Key)
		m.journalDelete(ctx, inst.Key)
		m.publish(ctx)
		m.removeContainer(ctx, instanceID)
	}()
}

// Run starts the two background loops: the idle-reap sweep and the runtime event watch.
// Both live until ctx is done and talk to the rest of the controller only through the
// Registry and the publisher.
//
// Called from cmd/main after Recover.
func (m *LifecycleManager) Run(ctx context.Context) {
	go m.sweepLoop(ctx)
	go m.watchLoop(ctx)
}

// Recover re-adopts containers recorded in the session journal that are still running,
// so a controller restart neither leaks them nor routes around them. Stale records
// (container gone) are deleted; their containers, if half-dead, are removed best-effort.
//
// Parameter ctx — bounds journal and runtime calls.
//
// Returns: nil when the journal is disabled, empty or fully processed; error when the
// journal itself cannot be listed (startup should fail loudly in that case).
//
// Called from cmd/main before Run.
func (m *LifecycleManager) Recover(ctx context.Context) error {
	if m.journal == nil {
		return nil
	}
	records, err := m.journal.ListAllValues(ctx)
	if err != nil {
		if IsEntityNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("list session journal: %w", err)
	}
	for _, rec := range records {
		logger := log.With(m.logger, "key", rec.Key, "instance_id", rec.InstanceID)
		st, err := m.runtime.Inspect(ctx, rec.InstanceID)
		if err != nil {
			level.Warn(logger).Log("msg", "recovery inspect failed, skipping record", "err", err)
			continue
		}
		if !st.Running {
			m.journalDelete(ctx, rec.Key)
			m.removeContainer(ctx, rec.InstanceID)
			continue
		}
		if _, created, _ := m.registry.Reserve(rec.Key); !created {
			continue
		}
		if err := m.registry.BindID(rec.Key, rec.InstanceID); err != nil {
			level.Warn(logger).Log("msg", "recovery bind failed", "err", err)
			continue
		}
		address := st.Address
		if address == "" {
			address = rec.Address
		}
		if err := m.registry.MarkReady(rec.InstanceID, address); err != nil {
			level.Warn(logger).Log("msg", "recovery mark ready failed", "err", err)
			continue
		}
		level.Info(logger).Log("msg", "re-adopted running instance", "address", address)
		m.status.Record(m.clock.Now(), "session %s re-adopted at %s", rec.Key, address)
	}
	m.publish(ctx)
	return nil
}

// sweepLoop runs the idle-reap sweep every SweepInterval until ctx is done.
func (m *LifecycleManager) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep drains every ready instance idle past the threshold and removes stopped
// instances whose grace period elapsed.
func (m *LifecycleManager) sweep(ctx context.Context) {
	now := m.clock.Now()
	for _, inst := range m.registry.Snapshot() {
		switch inst.State {
		case domain.StateReady:
			if now.Sub(inst.LastActiveAt) >= m.cfg.IdleTimeout {
				level.Info(m.logger).Log("msg", "idle instance draining", "key", inst.Key, "instance_id", inst.ID)
				m.drain(ctx, inst)
			}
		case domain.StateStopped:
			if now.Sub(inst.LastActiveAt) >= m.cfg.StopGrace {
				m.registry.Remove(inst.ID)
				m.removeContainer(ctx, inst.ID)
			}
		}
	}
}

// drain takes one ready instance out of service: draining transition, route retraction
// (before the container begins stopping), runtime stop, stopped transition, journal
// cleanup. A lost transition race means another path is already tearing the instance
// down, and drain backs off.
func (m *LifecycleManager) drain(ctx context.Context, inst domain.WorkloadInstance) {
	if _, err := m.registry.Transition(inst.ID, domain.StateDraining); err != nil {
		level.Warn(m.logger).Log("msg", "drain rejected", "key", inst.Key, "instance_id", inst.ID, "err", err)
		return
	}
	m.publish(ctx)
	if err := m.runtime.Stop(ctx, inst.ID); err != nil {
		// Keep going: the post-grace sweep force-removes the container.
		level.Error(m.logger).Log("msg", "workload stop failed", "key", inst.Key, "instance_id", inst.ID, "err", err)
	}
	if _, err := m.registry.Transition(inst.ID, domain.StateStopped); err != nil {
		level.Warn(m.logger).Log("msg", "stopped transition rejected", "key", inst.Key, "instance_id", inst.ID, "err", err)
	}
	m.status.Record(m.clock.Now(), "session %s stopped", inst.Key)
	m.journalDelete(ctx, inst.Key)
}

// watchLoop consumes runtime lifecycle events and fails ready instances whose container
// died behind the controller's back. The subscription is re-established with bounded
// backoff when the stream errors or closes.
func (m *LifecycleManager) watchLoop(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		events, errs := m.runtime.Watch(ctx)
		if events == nil {
			level.Warn(m.logger).Log("msg", "event subscription unavailable, retrying", "backoff", backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

	consume:
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					break consume
				}
				m.handleRuntimeEvent(ctx, ev)
			case err, ok := <-errs:
				if ok && err != nil {
					level.Warn(m.logger).Log("msg", "event stream error, resubscribing", "err", err)
				}
				break consume
			}
		}
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// handleRuntimeEvent fails a ready instance whose container died. Die events for
// draining or stopped instances are the controller's own teardown and are ignored via
// the transition guard.
func (m *LifecycleManager) handleRuntimeEvent(ctx context.Context, ev domain.RuntimeEvent) {
	if ev.Action != domain.EventDie {
		return
	}
	inst, err := m.registry.Transition(ev.InstanceID, domain.StateFailed)
	if err != nil {
		return
	}
	level.Error(m.logger).Log("msg", "instance crashed", "key", inst.Key, "instance_id", inst.ID)
	m.status.Record(m.clock.Now(), "session %s crashed", inst.Key)
	m.journalDelete(ctx, inst.Key)
	m.publish(ctx)
	m.removeContainer(ctx, inst.ID)
}

// publish pushes current registry state to the route table; failures are logged inside
// the publisher and healed by its periodic cycle.
func (m *LifecycleManager) publish(ctx context.Context) {
	_ = m.publisher.Publish(ctx)
}

// teardownContainer stops and removes a container that never became ready, on its own
// bounded context (the provisioning ctx may already be expired).
func (m *LifecycleManager) teardownContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := m.runtime.Stop(ctx, id); err != nil {
		level.Warn(m.logger).Log("msg", "cleanup stop failed", "instance_id", id, "err", err)
	}
	m.removeContainer(ctx, id)
}

// removeContainer force-removes the container best-effort.
func (m *LifecycleManager) removeContainer(ctx context.Context, id string) {
	if err := m.runtime.Remove(ctx, id); err != nil {
		level.Warn(m.logger).Log("msg", "container remove failed", "instance_id", id, "err", err)
	}
}

// journalWrite mirrors a ready instance to the session journal (no TTL — teardown deletes
// explicitly). Journal failures never affect request handling.
func (m *LifecycleManager) journalWrite(ctx context.Context, key, id, address string) {
	if m.journal == nil {
		return
	}
	rec := domain.SessionRecord{
		Key:        key,
		InstanceID: id,
		Address:    address,
		CreatedAt:  m.clock.Now(),
	}
	if err := m.journal.WriteValue(ctx, key, rec, 0); err != nil {
		level.Warn(m.logger).Log("msg", "journal write failed", "key", key, "err", err)
	}
}

// journalDelete removes the key's journal record best-effort.
func (m *LifecycleManager) journalDelete(ctx context.Context, key string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.DeleteValue(ctx, key); err != nil {
		level.Warn(m.logger).Log("msg", "journal delete failed", "key", key, "err", err)
	}
}

// sleepCtx sleeps for d or until ctx is done; returns false when ctx ended the sleep.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles d up to watchBackoffMax.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > watchBackoffMax {
		return watchBackoffMax
	}
	return d
}

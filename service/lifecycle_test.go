package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a mutable time source so idle and grace thresholds can be crossed
// without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: helpers.TestNow()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func lifecycleTemplate() domain.WorkloadTemplate {
	return domain.WorkloadTemplate{
		Image:        "jlesage/firefox:latest",
		InternalPort: 5800,
		Network:      "proxy_network",
		Entrypoint:   "web",
		NamePrefix:   "session",
		StripPrefix:  true,
	}
}

func defaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		ProvisionTimeout: 2 * time.Second,
		IdleTimeout:      time.Minute,
		SweepInterval:    time.Hour,
		StopGrace:        time.Minute,
		PollInterval:     2 * time.Millisecond,
	}
}

type lifecycleFixture struct {
	registry *Registry
	runtime  *mock.RuntimeMock
	table    *mock.RouteTableMock
	journal  *mock.CacheMock[domain.SessionRecord]
	clock    *fakeClock
	manager  *LifecycleManager
}

func newLifecycleFixture(runtime *mock.RuntimeMock, cfg LifecycleConfig) *lifecycleFixture {
	clock := newFakeClock()
	registry := NewRegistry(clock)
	table := &mock.RouteTableMock{}
	journal := &mock.CacheMock[domain.SessionRecord]{}
	publisher := NewRoutePublisher(table, lifecycleTemplate(), registry.Snapshot, log.NewNopLogger())
	manager := NewLifecycleManager(
		registry,
		runtime,
		publisher,
		journal,
		lifecycleTemplate(),
		cfg,
		clock,
		log.NewNopLogger(),
	)
	return &lifecycleFixture{
		registry: registry,
		runtime:  runtime,
		table:    table,
		journal:  journal,
		clock:    clock,
		manager:  manager,
	}
}

// runningRuntime answers Start with id and reports the container running at address.
func runningRuntime(id, address string) *mock.RuntimeMock {
	return &mock.RuntimeMock{
		StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
			return id, nil
		},
		InspectFunc: func(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
			return domain.RuntimeStatus{Running: true, Address: address}, nil
		},
	}
}

func TestNewLifecycleManager_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "service.lifecycle.go: registry is required", func() {
		NewLifecycleManager(nil, &mock.RuntimeMock{}, nil, nil, lifecycleTemplate(), defaultLifecycleConfig(), newFakeClock(), log.NewNopLogger())
	})
}

func TestLifecycleManager_EnsureReady(t *testing.T) {
	t.Run("provisions_on_first_request", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())

		inst, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, domain.StateReady, inst.State)
		assert.Equal(t, "c1", inst.ID)
		assert.Equal(t, "172.20.0.5:5800", inst.Address)

		starts := f.runtime.StartCalls()
		require.Len(t, starts, 1)
		assert.Equal(t, "session-tenant-a", starts[0].Spec.Name)
		assert.Equal(t, "jlesage/firefox:latest", starts[0].Spec.Image)
		assert.Equal(t, "tenant-a", starts[0].Spec.Labels[domain.LabelSessionKey])

		// Ready instance is published and mirrored to the journal.
		require.Eventually(t, func() bool {
			return len(f.table.RegisterCalls()) == 1 && len(f.journal.WriteValueCalls()) == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, "tenant-a", f.journal.WriteValueCalls()[0].Key)
	})

	t.Run("second_request_reuses_ready_instance", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		inst, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)

		assert.Equal(t, "c1", inst.ID)
		assert.Len(t, f.runtime.StartCalls(), 1)
	})

	t.Run("concurrent_requests_single_start", func(t *testing.T) {
		started := make(chan struct{})
		runtime := &mock.RuntimeMock{
			StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
				<-started
				return "c1", nil
			},
			InspectFunc: func(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
				return domain.RuntimeStatus{Running: true, Address: "172.20.0.5:5800"}, nil
			},
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())

		const n = 10
		var wg sync.WaitGroup
		ids := make(chan string, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				inst, err := f.manager.EnsureReady(context.Background(), "tenant-a")
				assert.NoError(t, err)
				ids <- inst.ID
			}()
		}
		close(started)
		wg.Wait()
		close(ids)

		assert.Len(t, f.runtime.StartCalls(), 1)
		for id := range ids {
			assert.Equal(t, "c1", id)
		}
	})

	t.Run("invalid_key_rejected", func(t *testing.T) {
		f := newLifecycleFixture(&mock.RuntimeMock{}, defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "../etc")
		assert.True(t, IsBadParameterError(err))
		assert.Empty(t, f.runtime.StartCalls())
	})

	t.Run("start_failure_frees_key_slot", func(t *testing.T) {
		runtime := &mock.RuntimeMock{
			StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
				return "", errors.New("image not found")
			},
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.Error(t, err)
		assert.True(t, IsServiceUnavailableError(err))
		// The start error reaches the waiting request even though the failed entry is
		// gone by the time the wait resolves.
		assert.ErrorContains(t, err, "image not found")

		// The failed entry is removed so the next request re-triggers provisioning.
		require.Eventually(t, func() bool {
			_, ok := f.registry.Lookup("tenant-a")
			return !ok
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("provisioning_timeout_fails_and_cleans_up", func(t *testing.T) {
		cfg := defaultLifecycleConfig()
		cfg.ProvisionTimeout = 50 * time.Millisecond
		runtime := &mock.RuntimeMock{
			StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
				return "c1", nil
			},
			// Running but never reports an address: readiness never confirmed.
			InspectFunc: func(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
				return domain.RuntimeStatus{Running: true}, nil
			},
		}
		f := newLifecycleFixture(runtime, cfg)

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.Error(t, err)
		assert.True(t, IsServiceUnavailableError(err))

		require.Eventually(t, func() bool {
			_, ok := f.registry.Lookup("tenant-a")
			return !ok && len(f.runtime.StopCalls()) == 1 && len(f.runtime.RemoveCalls()) == 1
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("container_exits_during_provisioning", func(t *testing.T) {
		runtime := &mock.RuntimeMock{
			StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
				return "c1", nil
			},
			InspectFunc: func(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
				return domain.RuntimeStatus{Running: false, ExitCode: 137}, nil
			},
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.Error(t, err)
		assert.True(t, IsServiceUnavailableError(err))
		assert.ErrorContains(t, err, "137")
	})

	t.Run("draining_instance_rejected", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())

		inst, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		_, err = f.registry.Transition(inst.ID, domain.StateDraining)
		require.NoError(t, err)

		_, err = f.manager.EnsureReady(context.Background(), "tenant-a")
		require.Error(t, err)
		assert.True(t, IsServiceUnavailableError(err))
		assert.ErrorIs(t, err, ErrInstanceDraining)
		assert.Len(t, f.runtime.StartCalls(), 1)
	})
}

func TestLifecycleManager_Events(t *testing.T) {
	t.Run("launch_and_ready_recorded", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)

		// The ready event lands right after the waiters wake, so poll briefly.
		require.Eventually(t, func() bool {
			return len(f.manager.Events()) == 2
		}, 2*time.Second, 5*time.Millisecond)
		events := f.manager.Events()
		assert.Equal(t, "session tenant-a ready at 172.20.0.5:5800", events[0].Message)
		assert.Equal(t, "launching session tenant-a", events[1].Message)
	})

	t.Run("start_failure_recorded", func(t *testing.T) {
		runtime := &mock.RuntimeMock{
			StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
				return "", errors.New("image not found")
			},
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.Error(t, err)

		require.Eventually(t, func() bool {
			events := f.manager.Events()
			return len(events) == 2 && events[0].Message == "session tenant-a failed to start: image not found"
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestLifecycleManager_Stop(t *testing.T) {
	t.Run("drains_ready_instance", func(t *testing.T) {
		var mu sync.Mutex
		var order []string
		runtime := runningRuntime("c1", "172.20.0.5:5800")
		runtime.StopFunc = func(ctx context.Context, instanceID string) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, "runtime_stop")
			return nil
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())
		f.table.WithdrawFunc = func(ctx context.Context, routerID string) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, "withdraw")
			return nil
		}

		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return len(f.table.RegisterCalls()) == 1
		}, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, f.manager.Stop(context.Background(), "tenant-a"))

		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateStopped, inst.State)

		// Route retraction must land before the container starts stopping.
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"withdraw", "runtime_stop"}, order)
		assert.Len(t, f.journal.DeleteValueCalls(), 1)
	})

	t.Run("unknown_key", func(t *testing.T) {
		f := newLifecycleFixture(&mock.RuntimeMock{}, defaultLifecycleConfig())
		err := f.manager.Stop(context.Background(), "nope")
		assert.True(t, IsEntityNotFoundError(err))
	})

	t.Run("provisioning_instance_not_stoppable_yet", func(t *testing.T) {
		f := newLifecycleFixture(&mock.RuntimeMock{}, defaultLifecycleConfig())
		f.registry.Reserve("tenant-a")
		err := f.manager.Stop(context.Background(), "tenant-a")
		assert.True(t, IsServiceUnavailableError(err))
	})

	t.Run("already_stopped_is_ok", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		require.NoError(t, f.manager.Stop(context.Background(), "tenant-a"))
		require.NoError(t, f.manager.Stop(context.Background(), "tenant-a"))
		assert.Len(t, f.runtime.StopCalls(), 1)
	})
}

func TestLifecycleManager_Sweep(t *testing.T) {
	t.Run("idle_instance_drained", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)

		// Below the threshold: nothing happens.
		f.clock.Advance(30 * time.Second)
		f.manager.sweep(context.Background())
		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateReady, inst.State)

		// Past the threshold: drained to stopped.
		f.clock.Advance(31 * time.Second)
		f.manager.sweep(context.Background())
		inst, ok = f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateStopped, inst.State)
		assert.Len(t, f.runtime.StopCalls(), 1)
	})

	t.Run("touch_defers_idle_reap", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)

		f.clock.Advance(50 * time.Second)
		_, err = f.manager.EnsureReady(context.Background(), "tenant-a") // bumps LastActiveAt
		require.NoError(t, err)

		f.clock.Advance(50 * time.Second)
		f.manager.sweep(context.Background())
		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateReady, inst.State)
	})

	t.Run("stopped_instance_removed_after_grace", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		require.NoError(t, f.manager.Stop(context.Background(), "tenant-a"))

		f.clock.Advance(61 * time.Second)
		f.manager.sweep(context.Background())

		_, ok := f.registry.Lookup("tenant-a")
		assert.False(t, ok)
		assert.Len(t, f.runtime.RemoveCalls(), 1)
	})
}

func TestLifecycleManager_HandleRuntimeEvent(t *testing.T) {
	t.Run("die_fails_ready_instance", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return len(f.table.RegisterCalls()) == 1
		}, 2*time.Second, 5*time.Millisecond)

		f.manager.handleRuntimeEvent(context.Background(), domain.RuntimeEvent{InstanceID: "c1", Action: domain.EventDie})

		_, ok := f.registry.Lookup("tenant-a")
		assert.False(t, ok)
		assert.Len(t, f.table.WithdrawCalls(), 1)
		assert.Len(t, f.journal.DeleteValueCalls(), 1)
		assert.Len(t, f.runtime.RemoveCalls(), 1)

		// The slot is free for a fresh instance.
		_, created, _ := f.registry.Reserve("tenant-a")
		assert.True(t, created)
	})

	t.Run("die_during_own_teardown_ignored", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		require.NoError(t, f.manager.Stop(context.Background(), "tenant-a"))

		f.manager.handleRuntimeEvent(context.Background(), domain.RuntimeEvent{InstanceID: "c1", Action: domain.EventDie})

		// Stopped entry survives until the grace sweep; nothing extra torn down.
		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateStopped, inst.State)
		assert.Empty(t, f.runtime.RemoveCalls())
	})

	t.Run("unknown_id_ignored", func(t *testing.T) {
		f := newLifecycleFixture(&mock.RuntimeMock{}, defaultLifecycleConfig())
		f.manager.handleRuntimeEvent(context.Background(), domain.RuntimeEvent{InstanceID: "nope", Action: domain.EventDie})
		assert.Empty(t, f.runtime.RemoveCalls())
	})

	t.Run("stop_event_ignored", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)

		f.manager.handleRuntimeEvent(context.Background(), domain.RuntimeEvent{InstanceID: "c1", Action: domain.EventStop})

		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateReady, inst.State)
	})
}

func TestLifecycleManager_OnBackendFailure(t *testing.T) {
	t.Run("still_running_keeps_instance", func(t *testing.T) {
		f := newLifecycleFixture(runningRuntime("c1", "172.20.0.5:5800"), defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)
		inspectsBefore := len(f.runtime.InspectCalls())

		f.manager.OnBackendFailure("c1")

		require.Eventually(t, func() bool {
			return len(f.runtime.InspectCalls()) > inspectsBefore
		}, 2*time.Second, 5*time.Millisecond)
		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateReady, inst.State)
	})

	t.Run("confirmed_dead_instance_failed", func(t *testing.T) {
		var running sync.Map
		running.Store("c1", true)
		runtime := &mock.RuntimeMock{
			StartFunc: func(ctx context.Context, spec domain.StartSpec) (string, error) {
				return "c1", nil
			},
			InspectFunc: func(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
				alive, _ := running.Load(instanceID)
				return domain.RuntimeStatus{Running: alive == true, Address: "172.20.0.5:5800"}, nil
			},
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())
		_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
		require.NoError(t, err)

		running.Store("c1", false)
		f.manager.OnBackendFailure("c1")

		require.Eventually(t, func() bool {
			_, ok := f.registry.Lookup("tenant-a")
			return !ok
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestLifecycleManager_Recover(t *testing.T) {
	t.Run("journal_disabled", func(t *testing.T) {
		clock := newFakeClock()
		registry := NewRegistry(clock)
		publisher := NewRoutePublisher(&mock.RouteTableMock{}, lifecycleTemplate(), registry.Snapshot, log.NewNopLogger())
		m := NewLifecycleManager(registry, &mock.RuntimeMock{}, publisher, nil, lifecycleTemplate(), defaultLifecycleConfig(), clock, log.NewNopLogger())

		require.NoError(t, m.Recover(context.Background()))
	})

	t.Run("readopts_running_and_drops_dead", func(t *testing.T) {
		runtime := &mock.RuntimeMock{
			InspectFunc: func(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
				if instanceID == "c-alive" {
					return domain.RuntimeStatus{Running: true, Address: "172.20.0.5:5800"}, nil
				}
				return domain.RuntimeStatus{Running: false}, nil
			},
		}
		f := newLifecycleFixture(runtime, defaultLifecycleConfig())
		f.journal.ListAllValuesFunc = func(ctx context.Context) ([]domain.SessionRecord, error) {
			return []domain.SessionRecord{
				{Key: "tenant-a", InstanceID: "c-alive", Address: "172.20.0.5:5800"},
				{Key: "tenant-b", InstanceID: "c-dead", Address: "172.20.0.6:5800"},
			}, nil
		}

		require.NoError(t, f.manager.Recover(context.Background()))

		inst, ok := f.registry.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateReady, inst.State)
		assert.Equal(t, "c-alive", inst.ID)
		assert.Equal(t, "172.20.0.5:5800", inst.Address)

		_, ok = f.registry.Lookup("tenant-b")
		assert.False(t, ok)
		require.Len(t, f.journal.DeleteValueCalls(), 1)
		assert.Equal(t, "tenant-b", f.journal.DeleteValueCalls()[0].Key)
		require.Len(t, f.runtime.RemoveCalls(), 1)
		assert.Equal(t, "c-dead", f.runtime.RemoveCalls()[0].InstanceID)

		// Re-adopted instances are published immediately.
		assert.Len(t, f.table.RegisterCalls(), 1)
	})

	t.Run("empty_journal_is_fine", func(t *testing.T) {
		f := newLifecycleFixture(&mock.RuntimeMock{}, defaultLifecycleConfig())
		f.journal.ListAllValuesFunc = func(ctx context.Context) ([]domain.SessionRecord, error) {
			return nil, NewEntityNotFoundError("Entity not found", nil)
		}
		require.NoError(t, f.manager.Recover(context.Background()))
	})

	t.Run("journal_error_fails_startup", func(t *testing.T) {
		f := newLifecycleFixture(&mock.RuntimeMock{}, defaultLifecycleConfig())
		f.journal.ListAllValuesFunc = func(ctx context.Context) ([]domain.SessionRecord, error) {
			return nil, NewInternalServerError("Redis get keys error", assert.AnError)
		}
		require.Error(t, f.manager.Recover(context.Background()))
	})
}

func TestLifecycleManager_WatchLoop(t *testing.T) {
	events := make(chan domain.RuntimeEvent)
	errs := make(chan error, 1)
	runtime := runningRuntime("c1", "172.20.0.5:5800")
	runtime.WatchFunc = func(ctx context.Context) (<-chan domain.RuntimeEvent, <-chan error) {
		return events, errs
	}
	f := newLifecycleFixture(runtime, defaultLifecycleConfig())

	_, err := f.manager.EnsureReady(context.Background(), "tenant-a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.manager.Run(ctx)

	events <- domain.RuntimeEvent{InstanceID: "c1", Action: domain.EventDie}

	require.Eventually(t, func() bool {
		_, ok := f.registry.Lookup("tenant-a")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

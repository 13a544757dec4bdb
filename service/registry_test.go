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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewTimeProvider(helpers.TestNow))
}

func TestNewRegistry_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "service.registry.go: clock is required", func() {
		NewRegistry(nil)
	})
}

func TestRegistry_Reserve(t *testing.T) {
	t.Run("first_call_creates_provisioning_entry", func(t *testing.T) {
		r := newTestRegistry()
		inst, created, waiter := r.Reserve("tenant-a")
		require.True(t, created)
		require.NotNil(t, waiter)
		assert.Equal(t, "tenant-a", inst.Key)
		assert.Equal(t, domain.StateProvisioning, inst.State)
		assert.Equal(t, helpers.TestNow(), inst.CreatedAt)
	})

	t.Run("second_call_returns_existing", func(t *testing.T) {
		r := newTestRegistry()
		r.Reserve("tenant-a")
		inst, created, _ := r.Reserve("tenant-a")
		assert.False(t, created)
		assert.Equal(t, domain.StateProvisioning, inst.State)
	})

	t.Run("concurrent_reserves_single_winner", func(t *testing.T) {
		r := newTestRegistry()
		const n = 50
		var wg sync.WaitGroup
		results := make(chan bool, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, created, _ := r.Reserve("tenant-a")
				results <- created
			}()
		}
		wg.Wait()
		close(results)

		winners := 0
		for created := range results {
			if created {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestRegistry_BindID(t *testing.T) {
	r := newTestRegistry()
	r.Reserve("tenant-a")

	require.NoError(t, r.BindID("tenant-a", "c1"))

	t.Run("rebind_rejected", func(t *testing.T) {
		err := r.BindID("tenant-a", "c2")
		assert.ErrorContains(t, err, "already bound")
	})
	t.Run("duplicate_id_rejected", func(t *testing.T) {
		r.Reserve("tenant-b")
		err := r.BindID("tenant-b", "c1")
		assert.ErrorContains(t, err, "already bound")
	})
	t.Run("unknown_key", func(t *testing.T) {
		err := r.BindID("nope", "c3")
		assert.ErrorIs(t, err, ErrUnknownInstance)
	})
}

func TestRegistry_MarkReady(t *testing.T) {
	r := newTestRegistry()
	r.Reserve("tenant-a")
	require.NoError(t, r.BindID("tenant-a", "c1"))

	require.NoError(t, r.MarkReady("c1", "172.20.0.5:5800"))
	inst, ok := r.Lookup("tenant-a")
	require.True(t, ok)
	assert.Equal(t, domain.StateReady, inst.State)
	assert.Equal(t, "172.20.0.5:5800", inst.Address)

	t.Run("double_mark_ready_rejected", func(t *testing.T) {
		assert.ErrorIs(t, r.MarkReady("c1", "172.20.0.5:5800"), ErrInvalidTransition)
	})
	t.Run("unknown_id", func(t *testing.T) {
		assert.ErrorIs(t, r.MarkReady("nope", "x"), ErrUnknownInstance)
	})
}

func TestRegistry_Transition(t *testing.T) {
	setupReady := func(t *testing.T) *Registry {
		t.Helper()
		r := newTestRegistry()
		r.Reserve("tenant-a")
		require.NoError(t, r.BindID("tenant-a", "c1"))
		require.NoError(t, r.MarkReady("c1", "172.20.0.5:5800"))
		return r
	}

	t.Run("ready_to_draining_to_stopped", func(t *testing.T) {
		r := setupReady(t)
		inst, err := r.Transition("c1", domain.StateDraining)
		require.NoError(t, err)
		assert.Equal(t, domain.StateDraining, inst.State)

		inst, err = r.Transition("c1", domain.StateStopped)
		require.NoError(t, err)
		assert.Equal(t, domain.StateStopped, inst.State)

		// Stopped entries stay visible until the grace period sweep removes them.
		_, ok := r.Lookup("tenant-a")
		assert.True(t, ok)
	})

	t.Run("to_ready_rejected", func(t *testing.T) {
		r := setupReady(t)
		_, err := r.Transition("c1", domain.StateReady)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("invalid_edge_rejected", func(t *testing.T) {
		r := setupReady(t)
		_, err := r.Transition("c1", domain.StateStopped)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("to_failed_removes_entry", func(t *testing.T) {
		r := setupReady(t)
		inst, err := r.Transition("c1", domain.StateFailed)
		require.NoError(t, err)
		assert.Equal(t, domain.StateFailed, inst.State)

		_, ok := r.Lookup("tenant-a")
		assert.False(t, ok)
		// Key slot is free again.
		_, created, _ := r.Reserve("tenant-a")
		assert.True(t, created)
	})
}

func TestRegistry_Fail(t *testing.T) {
	t.Run("before_id_bound", func(t *testing.T) {
		r := newTestRegistry()
		r.Reserve("tenant-a")
		cause := errors.New("start workload: boom")

		inst, ok := r.Fail("tenant-a", cause)
		require.True(t, ok)
		assert.Equal(t, domain.StateFailed, inst.State)
		_, found := r.Lookup("tenant-a")
		assert.False(t, found)
	})

	t.Run("unknown_key_noop", func(t *testing.T) {
		r := newTestRegistry()
		_, ok := r.Fail("nope", errors.New("x"))
		assert.False(t, ok)
	})
}

func TestRegistry_Snapshot_OrderedByKey(t *testing.T) {
	r := newTestRegistry()
	r.Reserve("zz")
	r.Reserve("aa")
	r.Reserve("mm")

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "aa", snap[0].Key)
	assert.Equal(t, "mm", snap[1].Key)
	assert.Equal(t, "zz", snap[2].Key)
}

func TestRegistry_ReadyWaiter(t *testing.T) {
	t.Run("returns_instance_once_ready", func(t *testing.T) {
		r := newTestRegistry()
		_, _, waiter := r.Reserve("tenant-a")
		require.NoError(t, r.BindID("tenant-a", "c1"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			inst, err := waiter.Wait(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, domain.StateReady, inst.State)
			assert.Equal(t, "172.20.0.5:5800", inst.Address)
		}()

		require.NoError(t, r.MarkReady("c1", "172.20.0.5:5800"))
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Wait did not return after MarkReady")
		}
	})

	t.Run("failure_cause_surfaces_to_late_waiter", func(t *testing.T) {
		r := newTestRegistry()
		_, _, waiter := r.Reserve("tenant-a")
		cause := errors.New("start workload: boom")

		// The entry fails and is removed before the wait even begins; the waiter
		// must still observe the recorded cause, not an unknown-instance error.
		r.Fail("tenant-a", cause)
		_, found := r.Lookup("tenant-a")
		require.False(t, found)

		_, err := waiter.Wait(context.Background())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("failure_cause_wakes_blocked_waiter", func(t *testing.T) {
		r := newTestRegistry()
		_, _, waiter := r.Reserve("tenant-a")
		cause := errors.New("start workload: boom")

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := waiter.Wait(context.Background())
			assert.ErrorIs(t, err, cause)
		}()

		r.Fail("tenant-a", cause)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Wait did not return after Fail")
		}
	})

	t.Run("joining_reserve_waiter_sees_same_cause", func(t *testing.T) {
		r := newTestRegistry()
		r.Reserve("tenant-a")
		_, created, waiter := r.Reserve("tenant-a")
		require.False(t, created)
		cause := errors.New("container exited during provisioning with code 137")

		r.Fail("tenant-a", cause)

		_, err := waiter.Wait(context.Background())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("ctx_cancel_abandons_wait", func(t *testing.T) {
		r := newTestRegistry()
		_, _, waiter := r.Reserve("tenant-a")
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := waiter.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// Entry is untouched by the abandoned wait.
		inst, ok := r.Lookup("tenant-a")
		require.True(t, ok)
		assert.Equal(t, domain.StateProvisioning, inst.State)
	})
}

func TestRegistry_Touch(t *testing.T) {
	times := []time.Time{helpers.TestNow(), helpers.TestNow().Add(time.Minute)}
	i := 0
	clock := &mock.TimeProviderMock{
		NowFunc: func() time.Time {
			now := times[i%len(times)]
			i++
			return now
		},
	}

	r := NewRegistry(clock)
	r.Reserve("tenant-a")
	r.Touch("tenant-a")

	inst, ok := r.Lookup("tenant-a")
	require.True(t, ok)
	assert.Equal(t, helpers.TestNow().Add(time.Minute), inst.LastActiveAt)

	// Unknown key must not panic.
	r.Touch("nope")
}

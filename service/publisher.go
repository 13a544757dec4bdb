package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// RoutePublisher keeps the reverse proxy's discovery mechanism in sync with registry
// state. Publish derives the desired rule set from ready instances only, diffs it against
// the last applied set and pushes the minimal change to the RouteTable — withdrawals
// before additions, so an instance leaving ready stops receiving traffic no later than
// its container begins stopping. Re-publishing an unchanged snapshot makes zero table
// calls. Publish failures are logged and healed by the periodic Run cycle; they never
// block request handling.
type RoutePublisher struct {
	table    interfaces.RouteTable
	template domain.WorkloadTemplate
	snapshot func() []domain.WorkloadInstance
	logger   log.Logger

	mu        sync.Mutex
	published map[string]domain.RouteRule
}

// NewRoutePublisher creates a publisher over the given route table and snapshot source.
// Panics on nil table, snapshot or logger.
//
// Parameters: table — discovery mechanism (HTTP registration or label no-op); template —
// workload template (entrypoint, port, router naming); snapshot — registry snapshot
// source (service.Registry.Snapshot); logger — logger.
//
// Returns: *RoutePublisher.
//
// Called from cmd/main when building the controller.
func NewRoutePublisher(
	table interfaces.RouteTable,
	template domain.WorkloadTemplate,
	snapshot func() []domain.WorkloadInstance,
	logger log.Logger,
) *RoutePublisher {
	return &RoutePublisher{
		table:     helpers.NilPanic(table, "service.publisher.go: table is required"),
		template:  template,
		snapshot:  helpers.NilPanic(snapshot, "service.publisher.go: snapshot is required"),
		logger:    log.With(helpers.NilPanic(logger, "service.publisher.go: logger is required"), "component", "route_publisher"),
		published: make(map[string]domain.RouteRule),
	}
}

// Publish applies the diff between the current registry snapshot and the last published
// set. A rule that failed to apply stays out of (or in) the published set so the next
// cycle retries exactly the missing piece.
//
// Parameter ctx — bounds the table calls.
//
// Returns: nil when every table call succeeded; the last table error otherwise (callers
// log it; the periodic cycle retries).
//
// Called from LifecycleManager on every ready/teardown transition and from Run on a timer.
func (p *RoutePublisher) Publish(ctx context.Context) error {
	desired := make(map[string]domain.RouteRule)
	for _, inst := range p.snapshot() {
		if inst.State != domain.StateReady {
			continue
		}
		rule := domain.NewRouteRule(inst.Key, p.template)
		rule.Address = inst.Address
		desired[rule.RouterID] = rule
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error

	// Withdrawals first: a stale route is worse than a briefly missing one.
	for id := range p.published {
		if _, keep := desired[id]; keep {
			continue
		}
		if err := p.table.Withdraw(ctx, id); err != nil {
			lastErr = fmt.Errorf("withdraw %s: %w", id, err)
			level.Error(p.logger).Log("msg", "route withdraw failed", "router_id", id, "err", err)
			continue
		}
		delete(p.published, id)
	}

	for id, rule := range desired {
		if prev, ok := p.published[id]; ok && prev == rule {
			continue
		}
		if err := p.table.Register(ctx, rule); err != nil {
			lastErr = fmt.Errorf("register %s: %w", id, err)
			level.Error(p.logger).Log("msg", "route register failed", "router_id", id, "err", err)
			continue
		}
		p.published[id] = rule
	}
	return lastErr
}

// Run re-publishes on every tick until ctx is done, so transient table failures heal on
// the next cycle without any request-path involvement.
//
// Parameters: ctx — loop lifetime; interval — publish interval (PUBLISH_INTERVAL_MS).
//
// Called from cmd/main in its own goroutine.
func (p *RoutePublisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors already logged per rule; next tick retries.
			_ = p.Publish(ctx)
		}
	}
}

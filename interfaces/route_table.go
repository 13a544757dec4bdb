package interfaces

import (
	"context"

	"mycontroller/domain"
)

// RouteTable applies route additions and withdrawals to the reverse proxy's discovery
// mechanism. Label-based discovery needs no push (the labels ride on the container), so
// the table may be a no-op; when the proxy exposes a registration API the HTTP adapter
// keeps a declarative copy in sync.
//
// Implemented by adapters.RouteTableHTTP and adapters.NopRouteTable. Called only from
// service.RoutePublisher, which owns diffing and ordering (withdrawals before additions).
//
//go:generate moq -stub -out mock/route_table.go -pkg mock . RouteTable
type RouteTable interface {
	// Register makes the rule visible to the reverse proxy.
	// Returns: nil on success; error on request failure (the publisher retries next cycle).
	Register(ctx context.Context, rule domain.RouteRule) error

	// Withdraw retracts the router's rule. An already-absent router is nil, not an error,
	// so retraction is idempotent.
	Withdraw(ctx context.Context, routerID string) error
}

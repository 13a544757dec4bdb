package domain

import (
	"fmt"
	"strconv"
)

// RouteRule is the routing metadata published for one ready instance. It is derived from
// registry state at publish time and never stored independently: a rule must only ever
// reference an instance that is currently ready. RouterID doubles as the container name so
// label-based discovery and declarative registration agree on the identifier.
type RouteRule struct {
	// RouterID uniquely identifies the router at the reverse proxy (container name).
	RouterID string
	// PathPrefix is the match rule, e.g. "/session/ab12cd34".
	PathPrefix string
	// Entrypoint is the reverse-proxy entrypoint the router is attached to.
	Entrypoint string
	// Port is the workload's listening port inside the container (label-based discovery).
	Port int
	// Address is the instance endpoint host:port (declarative registration; empty until ready).
	Address string
}

// NewRouteRule derives the route rule for a key from the workload template. Address is
// left empty — the publisher fills it in from the ready instance.
//
// Parameters: key — routing key; t — workload template (entrypoint, port, name prefix).
//
// Returns: RouteRule for the key.
//
// Called from WorkloadTemplate.StartSpec (container labels) and service.RoutePublisher (diff set).
func NewRouteRule(key string, t WorkloadTemplate) RouteRule {
	return RouteRule{
		RouterID:   t.ContainerName(key),
		PathPrefix: SessionPath(key),
		Entrypoint: t.Entrypoint,
		Port:       t.InternalPort,
	}
}

// TraefikLabels renders the rule as container labels in the reverse proxy's discovery
// format: enable marker, PathPrefix router rule, entrypoint, loadbalancer server port and,
// when strip is true, a stripprefix middleware pair so the workload sees paths from "/".
// Absence of these labels means the instance receives no traffic even when running.
//
// Parameter strip — whether to attach the stripprefix middleware.
//
// Returns: map of label key to value, ready to merge into the container start spec.
//
// Called from WorkloadTemplate.StartSpec.
func (r RouteRule) TraefikLabels(strip bool) map[string]string {
	id := r.RouterID
	labels := map[string]string{
		"traefik.enable": "true",
		fmt.Sprintf("traefik.http.routers.%s.rule", id):                      fmt.Sprintf("PathPrefix(`%s`)", r.PathPrefix),
		fmt.Sprintf("traefik.http.routers.%s.entrypoints", id):               r.Entrypoint,
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", id): strconv.Itoa(r.Port),
	}
	if strip {
		middleware := "strip-" + id
		labels[fmt.Sprintf("traefik.http.routers.%s.middlewares", id)] = middleware
		labels[fmt.Sprintf("traefik.http.middlewares.%s.stripprefix.prefixes", middleware)] = r.PathPrefix
	}
	return labels
}

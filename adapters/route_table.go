package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/interfaces"
)

// RouteTableHTTP creates an interfaces.RouteTable that pushes declarative routing rules
// to a registration endpoint over HTTP: POST baseURL/v1/register with the rule as JSON
// and POST baseURL/v1/unregister/{router_id}. Used when PROXY_REGISTRATION_URL is set;
// label-based discovery on the containers keeps working either way. Panics on empty
// baseURL or nil client.
//
// Parameters: baseURL — registration endpoint base URL, no trailing slash; client — HTTP
// client (timeout recommended; main uses 10s).
//
// Returns: interfaces.RouteTable (*routeTableHTTP).
//
// Called from cmd/main when PROXY_REGISTRATION_URL is set.
func RouteTableHTTP(baseURL string, client *http.Client) interfaces.RouteTable {
	return &routeTableHTTP{
		baseURL: helpers.StrPanic(baseURL, "adapters.route_table.go: baseURL is required"),
		client:  helpers.NilPanic(client, "adapters.route_table.go: http client is required"),
	}
}

// routeTableHTTP implements interfaces.RouteTable over the registration HTTP API.
type routeTableHTTP struct {
	baseURL string
	client  *http.Client
}

// registerRequest is the JSON body of POST /v1/register.
type registerRequest struct {
	RouterID   string `json:"router_id"`
	PathPrefix string `json:"path_prefix"`
	Entrypoint string `json:"entrypoint"`
	Address    string `json:"address"`
	Port       int    `json:"port"`
}

// Register performs POST baseURL/v1/register with 5s timeout. Re-registering the same
// router id is accepted by the endpoint (upsert), which makes the call idempotent.
//
// Parameters: ctx — bounds the call together with the internal 5s timeout; rule — the
// routing rule to publish.
//
// Returns: nil on 200/201; error on other status, network error or encode failure.
//
// Called from service.RoutePublisher.Publish for each rule to add.
func (t *routeTableHTTP) Register(ctx context.Context, rule domain.RouteRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	body, err := json.Marshal(registerRequest{
		RouterID:   rule.RouterID,
		PathPrefix: rule.PathPrefix,
		Entrypoint: rule.Entrypoint,
		Address:    rule.Address,
		Port:       rule.Port,
	})
	if err != nil {
		return err
	}
	reqURL := t.baseURL + "/v1/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("route register returned %d", resp.StatusCode)
	}
	return nil
}

// Withdraw performs POST baseURL/v1/unregister/{router_id} with 5s timeout. A 404 means
// the rule is already gone and is treated as success, so retraction stays idempotent.
//
// Parameters: ctx — bounds the call together with the internal 5s timeout; routerID —
// rule identifier to retract; substituted in the URL via url.PathEscape.
//
// Returns: nil on 200 or 404; error on other status or request error.
//
// Called from service.RoutePublisher.Publish for each rule to retract, before the
// corresponding container is stopped.
func (t *routeTableHTTP) Withdraw(ctx context.Context, routerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	reqURL := t.baseURL + "/v1/unregister/" + url.PathEscape(routerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("route unregister returned %d", resp.StatusCode)
	}
	return nil
}

// NopRouteTable creates an interfaces.RouteTable that accepts everything and does
// nothing. Used when PROXY_REGISTRATION_URL is unset and routing is driven purely by the
// labels rendered onto the containers.
//
// Returns: interfaces.RouteTable (*nopRouteTable).
//
// Called from cmd/main when PROXY_REGISTRATION_URL is not set.
func NopRouteTable() interfaces.RouteTable {
	return &nopRouteTable{}
}

type nopRouteTable struct{}

func (*nopRouteTable) Register(context.Context, domain.RouteRule) error { return nil }
func (*nopRouteTable) Withdraw(context.Context, string) error          { return nil }

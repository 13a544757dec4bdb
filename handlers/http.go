// Package handlers contains the http surface of mycontroller: the management API
// (launch/list/stop sessions, health) and the per-session dispatch proxy.
package handlers

import (
	"net/http"

	"mycontroller/helpers"
	"mycontroller/interfaces"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
)

// HTTPServer serves the management API and dispatches /session/<key> traffic to
// instances resolved through the SessionController.
type HTTPServer struct {
	controller  interfaces.SessionController
	baseURL     string
	stripPrefix bool
	logger      log.Logger
}

// NewHTTPServer creates a new HTTPServer. Panics on nil controller/logger or empty baseURL.
//
// Parameters: controller — session lifecycle surface; baseURL — external reverse-proxy
// base URL used to render session launch URLs; stripPrefix — whether the dispatch proxy
// strips /session/<key> before forwarding (mirrors the workload template setting);
// logger — logger.
//
// Returns: *HTTPServer.
//
// Called from cmd/main.
func NewHTTPServer(controller interfaces.SessionController, baseURL string, stripPrefix bool, logger log.Logger) *HTTPServer {
	return &HTTPServer{
		controller:  helpers.NilPanic(controller, "handlers.http.go: controller is required"),
		baseURL:     helpers.StrPanic(baseURL, "handlers.http.go: baseURL is required"),
		stripPrefix: stripPrefix,
		logger:      log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "HTTPServer"),
	}
}

// RegisterHandlers wires all routes onto the echo instance.
func RegisterHandlers(e *echo.Echo, h *HTTPServer) {
	e.POST("/v1/sessions", h.LaunchSession)
	e.GET("/v1/sessions", h.ListSessions)
	e.DELETE("/v1/sessions/:key", h.StopSession)
	e.GET("/healthz", h.Health)
	e.Any("/session/:key", h.DispatchSession)
	e.Any("/session/:key/*", h.DispatchSession)
}

// LaunchSession (POST /v1/sessions) generates a fresh session key, provisions its
// instance and returns 201 with the session's external URL. Blocks until the instance is
// ready (bounded by the provisioning timeout); 503 when it could not be made ready in time.
func (h *HTTPServer) LaunchSession(ectx echo.Context) error {
	key := helpers.NewSessionKey()
	inst, err := h.controller.EnsureReady(ectx.Request().Context(), key)
	if err != nil {
		return err
	}

	return ectx.JSON(http.StatusCreated, toSessionInfo(inst, h.baseURL))
}

// ListSessions (GET /v1/sessions) returns all known sessions ordered by key, including
// provisioning and draining ones, plus the controller's recent lifecycle events.
func (h *HTTPServer) ListSessions(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, toSessionsResponse(h.controller.Sessions(), h.controller.Events(), h.baseURL))
}

// StopSession (DELETE /v1/sessions/{key}) drains the session's instance: route retracted
// first, container stopped after. Returns 200 on success (also when the instance is
// already on its way out), 404 for an unknown key, 503 while the instance is still
// provisioning.
func (h *HTTPServer) StopSession(ectx echo.Context) error {
	if err := h.controller.Stop(ectx.Request().Context(), ectx.Param("key")); err != nil {
		return err
	}

	return ectx.NoContent(http.StatusOK)
}

// Health (GET /healthz) reports liveness.
func (h *HTTPServer) Health(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"mycontroller/domain"
	"mycontroller/service"

	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// DispatchSession (ANY /session/{key} and /session/{key}/*) resolves the key to a ready
// instance — provisioning one on first contact — and forwards the request to it. The
// wait for readiness happens inside EnsureReady, so a request that arrives during
// provisioning is held until the instance is ready rather than bounced. A forward
// failure reports the instance for an asynchronous re-check and answers 502; the route
// is only retracted if the runtime confirms the container is dead.
func (h *HTTPServer) DispatchSession(ectx echo.Context) error {
	key := ectx.Param("key")
	inst, err := h.controller.EnsureReady(ectx.Request().Context(), key)
	if err != nil {
		return err
	}

	h.newProxy(inst).ServeHTTP(ectx.Response(), ectx.Request())
	return nil
}

// newProxy builds the reverse proxy for one resolved instance. Built per request: the
// instance address is only stable for the lifetime of the request that resolved it.
func (h *HTTPServer) newProxy(inst domain.WorkloadInstance) *httputil.ReverseProxy {
	target := &url.URL{Scheme: "http", Host: inst.Address}
	prefix := domain.SessionPath(inst.Key)

	director := func(req *http.Request) {
		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.Host = target.Host
		if h.stripPrefix {
			req.URL.Path = stripSessionPrefix(req.URL.Path, prefix)
			req.URL.RawPath = ""
		}
		if _, ok := req.Header["User-Agent"]; !ok {
			// Stop the stdlib default from leaking through to the workload.
			req.Header.Set("User-Agent", "")
		}
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		level.Warn(h.logger).Log(
			"msg", "forward to instance failed",
			"key", inst.Key,
			"instance_id", inst.ID,
			"address", inst.Address,
			"err", err,
		)
		h.controller.OnBackendFailure(inst.ID)

		w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(service.ErrResponse{
			Error: service.NewMyError(service.ErrServiceUnavailable, "instance did not respond", nil),
		})
	}

	return &httputil.ReverseProxy{Director: director, ErrorHandler: errorHandler}
}

// stripSessionPrefix removes the /session/<key> prefix the reverse proxy routed on, so
// the workload sees paths relative to its own root. The bare prefix maps to "/".
func stripSessionPrefix(path, prefix string) string {
	p := strings.TrimPrefix(path, prefix)
	if p == "" || p[0] != '/' {
		return "/" + p
	}
	return p
}

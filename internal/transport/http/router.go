// Package httptransport assembles the HTTP surface: middleware, the /users
// and /events resources, probes and the metrics endpoint.
package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"consents/internal/platform/health"
	dErrors "consents/pkg/domain-errors"
	"consents/pkg/platform/httputil"
	"consents/pkg/platform/middleware/metadata"
	"consents/pkg/platform/middleware/request"
	"consents/pkg/platform/middleware/requesttime"
)

// APIPrefix is the versioned mount point. Resources are also served at the root.
const APIPrefix = "/api/v1"

// Registrar mounts a resource's routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

type Deps struct {
	Logger         *slog.Logger
	Health         *health.Handler
	Metrics        http.Handler
	Latency        *request.Metrics
	RequestTimeout time.Duration
	BodyLimit      int64
	TrustedProxies []netip.Prefix
	Resources      []Registrar
}

func NewRouter(d Deps) http.Handler {
	if d.BodyLimit <= 0 {
		d.BodyLimit = request.DefaultBodyLimit
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(metadata.NewMiddleware(metadata.Config{TrustedProxies: d.TrustedProxies}).Handler)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Latency(d.Latency))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":             "method_not_allowed",
			"error_description": "method not allowed on this route",
		})
	})

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	mount := func(r chi.Router) {
		for _, res := range d.Resources {
			res.Register(r)
		}
	}
	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(request.Timeout(d.RequestTimeout))
		}
		r.Use(request.BodyLimit(d.BodyLimit))
		r.Use(request.ContentTypeJSON)

		mount(r)
		r.Route(APIPrefix, mount)
	})

	return r
}

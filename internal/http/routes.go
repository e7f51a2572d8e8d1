// Package http arma el router, los middlewares y el servidor del
// servicio de social login.
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialauth/internal/http/controllers/auth"
	httperrors "github.com/dropDatabas3/socialauth/internal/http/errors"
	mw "github.com/dropDatabas3/socialauth/internal/http/middlewares"
)

// RouterDeps agrupa lo que necesita el router.
type RouterDeps struct {
	Controllers *auth.Controllers

	// Metrics es el handler de /metrics (RegisterMetrics). Si es nil la
	// ruta no se expone.
	Metrics stdhttp.Handler

	// CORSAllowedOrigins habilita CORS para esos orígenes. Vacío = sin CORS.
	CORSAllowedOrigins []string

	// Ready reporta si las dependencias (store, cache) responden.
	// Nil = siempre listo.
	Ready func(ctx context.Context) error
}

// NewRouter construye el router chi con la cadena de middlewares
// estándar: recover -> request id -> security headers -> cors -> logging.
// Las métricas se instrumentan por ruta con el patrón como label.
func NewRouter(deps RouterDeps) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithSecurityHeaders())
	if len(deps.CORSAllowedOrigins) > 0 {
		r.Use(mw.WithCORS(deps.CORSAllowedOrigins))
	}
	r.Use(mw.WithLogging())

	c := deps.Controllers

	// Las rutas estáticas (/auth/providers, /auth/exchange, ...) ganan
	// sobre el wildcard {provider}, así que pueden convivir.
	r.With(WithMetrics("/auth/providers")).
		Get("/auth/providers", c.Providers.List)
	r.With(WithMetrics("/auth/exchange"), mw.WithNoStore()).
		Post("/auth/exchange", c.Exchange.Exchange)
	r.With(WithMetrics("/auth/success")).
		Get("/auth/success", c.Pages.Success)
	r.With(WithMetrics("/auth/error")).
		Get("/auth/error", c.Pages.Error)
	r.With(WithMetrics("/auth/{provider}"), mw.WithNoStore()).
		Get("/auth/{provider}", c.Start.Start)
	r.With(WithMetrics("/auth/{provider}/callback"), mw.WithNoStore()).
		Get("/auth/{provider}/callback", c.Callback.Callback)

	if deps.Metrics != nil {
		r.Method(stdhttp.MethodGet, "/metrics", deps.Metrics)
	}

	r.Get("/healthz", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
				return
			}
		}
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return r
}

package auth

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// StartController handles the login initiation endpoint.
type StartController struct {
	deps Deps
}

// Start handles GET /auth/{provider}: it mints the signed state and
// sends the browser to the provider's consent screen.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	provider := strings.TrimSpace(r.PathValue("provider"))
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	initiation, err := c.deps.Registry.Initiate(ctx, provider)
	if err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			log.Warn("unknown provider requested", logger.Provider(provider))
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("provider not enabled"))
			return
		}
		log.Error("initiation failed", logger.Provider(provider), logger.Err(err))
		redirectWithError(w, r, c.deps.FailureURL, provider, "server_error",
			"Could not start the login. Please try again.")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, initiation.RedirectURL, http.StatusFound)
}

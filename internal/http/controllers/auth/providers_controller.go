package auth

import (
	"net/http"

	httperrors "github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/oauth"
)

// ProvidersController exposes which providers are enabled, so client
// apps can render their login buttons dynamically.
type ProvidersController struct {
	registry *oauth.Registry
}

type providersResponse struct {
	Providers []string `json:"providers"`
}

// List handles GET /auth/providers.
func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, providersResponse{
		Providers: c.registry.Providers(),
	})
}

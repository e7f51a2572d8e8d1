package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	httperrors "github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/http/services/session"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// CallbackController handles the provider redirect back to us.
type CallbackController struct {
	deps Deps
}

// Callback handles GET /auth/{provider}/callback. Every outcome ends
// in a redirect: success lands on SuccessURL with a one-time login
// code, failures land on FailureURL with OAuth2-style error params.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

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

	q := r.URL.Query()

	// El IDP puede volver con error (user denied, etc.) en vez de code.
	if idpError := strings.TrimSpace(q.Get("error")); idpError != "" {
		idpDesc := strings.TrimSpace(q.Get("error_description"))
		log.Warn("IDP error",
			logger.Provider(provider),
			logger.String("error", idpError),
			logger.String("description", idpDesc),
		)
		metrics.ObserveLogin(provider, "error")
		redirectWithError(w, r, c.deps.FailureURL, provider, idpError, idpDesc)
		return
	}

	code := strings.TrimSpace(q.Get("code"))
	state := strings.TrimSpace(q.Get("state"))
	if code == "" || state == "" {
		log.Warn("missing code or state", logger.Provider(provider))
		metrics.ObserveLogin(provider, "error")
		redirectWithError(w, r, c.deps.FailureURL, provider, "invalid_request",
			"The callback is missing required parameters.")
		return
	}

	result := c.deps.Flow.Run(ctx, provider, oauth.CallbackRequest{Code: code, State: state})
	if !result.Success {
		log.Error("login failed", logger.Provider(provider), logger.Err(result.Err))
		metrics.ObserveLogin(provider, "error")
		errCode, errDesc := mapLoginError(result.Err)
		redirectWithError(w, r, c.deps.FailureURL, provider, errCode, errDesc)
		return
	}

	loginCode, err := c.deps.Codes.Issue(ctx, session.Payload{
		UserID:   result.User.ID,
		Email:    result.User.Email,
		Provider: provider,
		Token:    result.Token,
		Created:  result.Created,
	})
	if err != nil {
		log.Error("login code issue failed", logger.Provider(provider), logger.Err(err))
		metrics.ObserveLogin(provider, "error")
		redirectWithError(w, r, c.deps.FailureURL, provider, "server_error",
			"Failed to complete authentication. Please try again.")
		return
	}

	metrics.ObserveLogin(provider, "success")
	c.setSessionCookie(w, r, result.Token)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, withQuery(c.deps.SuccessURL, url.Values{
		"code":     {loginCode},
		"provider": {provider},
	}), http.StatusFound)

	log.Debug("redirecting to success page",
		logger.Provider(provider),
		logger.UserID(result.User.ID),
		logger.Bool("created", result.Created),
	)
}

// setSessionCookie deja el access token como cookie HttpOnly para
// integraciones same-site.
func (c *CallbackController) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	cfg := c.deps.Cookie
	if cfg.Name == "" {
		return
	}

	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.SameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: sameSite,
	})
}

// mapLoginError traduce errores internos a códigos estilo OAuth2 para
// el redirect. Nunca filtra detalle interno al browser.
func mapLoginError(err error) (code, description string) {
	switch {
	case errors.Is(err, oauth.ErrUnknownProvider):
		return "unauthorized_client", "This login provider is not enabled."
	case errors.Is(err, oauth.ErrStateReplayed):
		return "invalid_request", "This login was already completed. Please start again."
	case errors.Is(err, oauth.ErrStateExpired):
		return "invalid_request", "The login session expired. Please try again."
	case errors.Is(err, oauth.ErrStateInvalid),
		errors.Is(err, oauth.ErrStateIssuer),
		errors.Is(err, oauth.ErrStateAudience),
		errors.Is(err, oauth.ErrStateProvider):
		return "invalid_request", "Invalid login session. Please try again."
	case errors.Is(err, oauth.ErrMissingAuthorizationCode):
		return "invalid_request", "The identity provider did not return an authorization code."
	case errors.Is(err, oauth.ErrTokenExchange):
		return "server_error", "Failed to exchange authorization code. Please try again."
	case errors.Is(err, oauth.ErrProfileFetch):
		return "server_error", "Could not retrieve your profile from the identity provider."
	default:
		return "server_error", "An unexpected error occurred. Please try again."
	}
}

// redirectWithError manda al browser a la página de error de la
// aplicación con parámetros estilo OAuth2.
func redirectWithError(w http.ResponseWriter, r *http.Request, failureURL, provider, errCode, errDesc string) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, withQuery(failureURL, url.Values{
		"error":             {errCode},
		"error_description": {errDesc},
		"provider":          {provider},
	}), http.StatusFound)
}

// withQuery agrega parámetros a una URL preservando los existentes.
func withQuery(rawurl string, params url.Values) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return rawurl
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Set(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

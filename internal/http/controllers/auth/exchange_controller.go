package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/socialauth/internal/http/errors"
	"github.com/dropDatabas3/socialauth/internal/http/services/session"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// ExchangeController redeems one-time login codes for the session
// token, for apps that cannot read the HttpOnly cookie (native apps,
// cross-site SPAs).
type ExchangeController struct {
	codes *session.Codes
}

type exchangeRequest struct {
	Code string `json:"code"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	Provider    string `json:"provider"`
	Created     bool   `json:"created"`
}

// Exchange handles POST /auth/exchange.
func (c *ExchangeController) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ExchangeController.Exchange"))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("Content-Type must be application/json"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid json"))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("code required"))
		return
	}

	payload, err := c.codes.Redeem(ctx, req.Code)
	if err != nil {
		if errors.Is(err, session.ErrCodeNotFound) {
			metrics.LoginCodesRedeemedTotal.WithLabelValues("not_found").Inc()
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid or expired code"))
			return
		}
		log.Error("code redemption failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	metrics.LoginCodesRedeemedTotal.WithLabelValues("ok").Inc()
	w.Header().Set("Cache-Control", "no-store")
	httperrors.WriteJSON(w, http.StatusOK, exchangeResponse{
		AccessToken: payload.Token,
		TokenType:   "Bearer",
		UserID:      payload.UserID,
		Email:       payload.Email,
		Provider:    payload.Provider,
		Created:     payload.Created,
	})
}

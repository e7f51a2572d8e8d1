package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/cache"
	"github.com/dropDatabas3/socialauth/internal/events"
	authctl "github.com/dropDatabas3/socialauth/internal/http/controllers/auth"
	"github.com/dropDatabas3/socialauth/internal/http/services/session"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
	"github.com/dropDatabas3/socialauth/internal/store/memory"
	"github.com/dropDatabas3/socialauth/internal/workflow"
)

// newTestStack arma el servicio completo contra un IDP falso.
func newTestStack(t *testing.T) (stdhttp.Handler, *memory.Store) {
	t.Helper()

	idp := stdhttp.NewServeMux()
	idp.HandleFunc("/token", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "idp-token"})
	})
	idp.HandleFunc("/userinfo", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "g-123",
			"email":          "jane@example.com",
			"email_verified": true,
			"given_name":     "Jane",
			"name":           "Jane Doe",
		})
	})
	idpSrv := httptest.NewServer(idp)
	t.Cleanup(idpSrv.Close)

	spec := oauth.GoogleSpec()
	spec.TokenURL = idpSrv.URL + "/token"
	spec.ProfileURL = idpSrv.URL + "/userinfo"
	strategy, err := oauth.New(spec, oauth.Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost:8080/auth/google/callback",
	})
	require.NoError(t, err)

	signer, err := oauth.NewHMACStateSigner([]byte("router-test-secret"), "socialauth", 10*time.Minute)
	require.NoError(t, err)

	cc := cache.NewMemory("router-test", time.Minute)
	registry := oauth.NewRegistry(signer, cc, 10*time.Minute)
	registry.Register(strategy)

	store := memory.New()
	issuer := tokens.NewIssuer([]byte("router-test-secret"), "socialauth", time.Hour)
	bus := events.NewBus()
	flow := workflow.New(workflow.Deps{Registry: registry, Users: store, Issuer: issuer, Bus: bus})
	codes := session.NewCodes(cc, time.Minute)

	controllers := authctl.NewControllers(authctl.Deps{
		Registry:   registry,
		Flow:       flow,
		Codes:      codes,
		SuccessURL: "/auth/success",
		FailureURL: "/auth/error",
		Cookie: authctl.CookieConfig{
			Name:     "sa_session",
			SameSite: "lax",
			TTL:      time.Hour,
		},
	})

	router := NewRouter(RouterDeps{Controllers: controllers})
	return router, store
}

func do(router stdhttp.Handler, req *stdhttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStart_RedirectsToProvider(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/google", nil))
	require.Equal(t, stdhttp.StatusFound, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	require.NotEmpty(t, q.Get("state"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "id", q.Get("client_id"))
}

func TestStart_UnknownProviderIs404(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/myspace", nil))
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "not_found", body["code"])
}

// startLogin dispara /auth/{provider} y devuelve el state minteado.
func startLogin(t *testing.T, router stdhttp.Handler) string {
	t.Helper()
	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/google", nil))
	require.Equal(t, stdhttp.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestFullFlow_CallbackAndExchange(t *testing.T) {
	router, store := newTestStack(t)
	state := startLogin(t, router)

	// Callback del IDP.
	rec := do(router, httptest.NewRequest(stdhttp.MethodGet,
		"/auth/google/callback?code=idp-code&state="+url.QueryEscape(state), nil))
	require.Equal(t, stdhttp.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/success", loc.Path)
	loginCode := loc.Query().Get("code")
	require.NotEmpty(t, loginCode)
	require.Equal(t, "google", loc.Query().Get("provider"))

	// Cookie de sesión HttpOnly.
	var cookie *stdhttp.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sa_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.NotEmpty(t, cookie.Value)

	// El usuario quedó materializado y vinculado.
	u, err := store.GetByIdentity(context.Background(), "google", "g-123")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", u.Email)

	// Canje del login code.
	req := httptest.NewRequest(stdhttp.MethodPost, "/auth/exchange",
		strings.NewReader(`{"code":"`+loginCode+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(router, req)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		UserID      string `json:"user_id"`
		Email       string `json:"email"`
		Provider    string `json:"provider"`
		Created     bool   `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "Bearer", out.TokenType)
	require.Equal(t, u.ID, out.UserID)
	require.Equal(t, "google", out.Provider)
	require.True(t, out.Created)
	require.Equal(t, cookie.Value, out.AccessToken)

	// Los codes son de un solo canje.
	req = httptest.NewRequest(stdhttp.MethodPost, "/auth/exchange",
		strings.NewReader(`{"code":"`+loginCode+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(router, req)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}

func TestCallback_IDPErrorPassthrough(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet,
		"/auth/google/callback?error=access_denied&error_description=User+said+no", nil))
	require.Equal(t, stdhttp.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/error", loc.Path)
	require.Equal(t, "access_denied", loc.Query().Get("error"))
	require.Equal(t, "google", loc.Query().Get("provider"))
}

func TestCallback_MissingParams(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/google/callback?code=only-code", nil))
	require.Equal(t, stdhttp.StatusFound, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	require.Equal(t, "/auth/error", loc.Path)
	require.Equal(t, "invalid_request", loc.Query().Get("error"))
}

func TestCallback_ReplayedStateFails(t *testing.T) {
	router, _ := newTestStack(t)
	state := startLogin(t, router)

	path := "/auth/google/callback?code=idp-code&state=" + url.QueryEscape(state)
	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, path, nil))
	require.Equal(t, stdhttp.StatusFound, rec.Code)
	loc, _ := url.Parse(rec.Header().Get("Location"))
	require.Equal(t, "/auth/success", loc.Path)

	// Replay del mismo state.
	rec = do(router, httptest.NewRequest(stdhttp.MethodGet, path, nil))
	loc, _ = url.Parse(rec.Header().Get("Location"))
	require.Equal(t, "/auth/error", loc.Path)
	require.Equal(t, "invalid_request", loc.Query().Get("error"))
}

func TestExchange_Validation(t *testing.T) {
	router, _ := newTestStack(t)

	// Sin content-type JSON.
	req := httptest.NewRequest(stdhttp.MethodPost, "/auth/exchange", strings.NewReader(`{"code":"x"}`))
	rec := do(router, req)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	// Sin code.
	req = httptest.NewRequest(stdhttp.MethodPost, "/auth/exchange", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(router, req)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	// Code inexistente.
	req = httptest.NewRequest(stdhttp.MethodPost, "/auth/exchange", strings.NewReader(`{"code":"ghost"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(router, req)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "bad_request", body["code"])
}

func TestProvidersDiscovery(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/providers", nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var out struct {
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, []string{"google"}, out.Providers)
}

func TestLandingPages(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/success?code=abc&provider=google", nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), "abc")
	require.Contains(t, string(body), "google")

	rec = do(router, httptest.NewRequest(stdhttp.MethodGet, "/auth/error?error=access_denied&error_description=No+thanks", nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	body, _ = io.ReadAll(rec.Body)
	require.Contains(t, string(body), "No thanks")
}

func TestHealthAndReadiness(t *testing.T) {
	router, _ := newTestStack(t)

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = do(router, httptest.NewRequest(stdhttp.MethodGet, "/readyz", nil))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestReadyz_FailingDependency(t *testing.T) {
	router := NewRouter(RouterDeps{
		Controllers: authctl.NewControllers(authctl.Deps{}),
		Ready: func(ctx context.Context) error {
			return errors.New("db down")
		},
	})

	rec := do(router, httptest.NewRequest(stdhttp.MethodGet, "/readyz", nil))
	require.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
}

func TestRequestID_PropagatedToResponse(t *testing.T) {
	router, _ := newTestStack(t)

	req := httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := do(router, req)
	require.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))
}

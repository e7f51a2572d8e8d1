package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Strategy is one configured provider. Implementations are safe for
// concurrent use.
type Strategy interface {
	// Name returns the provider key ("google", "github", ...).
	Name() string

	// AuthorizationURL builds the provider consent URL carrying the
	// given state token.
	AuthorizationURL(state string) (string, error)

	// Exchange trades an authorization code for a provider token.
	Exchange(ctx context.Context, code string) (*Token, error)

	// FetchProfile retrieves the raw profile for the token.
	FetchProfile(ctx context.Context, tok *Token) (RawProfile, error)

	// Normalize maps a raw payload into the shared Profile shape.
	Normalize(raw RawProfile) (*Profile, error)

	// Authenticate runs exchange, fetch and normalize for a callback.
	Authenticate(ctx context.Context, req CallbackRequest) (*Result, error)
}

// Fetcher performs authorized JSON GETs against a provider API.
// Enrichment hooks use it to issue follow-up calls (for example the
// GitHub /user/emails lookup).
type Fetcher interface {
	GetJSON(ctx context.Context, rawurl string, tok *Token, headers map[string]string, out any) error
}

// ProviderSpec describes one provider as data: its endpoints, scopes
// and wire quirks. The generic client interprets the spec; adding a
// provider means writing a spec, not a client.
type ProviderSpec struct {
	Name          string
	AuthURL       string
	TokenURL      string
	ProfileURL    string
	DefaultScopes []string

	// AuthParams are extra query parameters for the consent URL
	// (Google's access_type=offline, GitHub's allow_signup).
	AuthParams url.Values

	// ScopeSeparator joins scopes in the consent URL. Defaults to " ".
	ScopeSeparator string

	// TokenMethod is the HTTP method for the token endpoint. Defaults
	// to POST; Facebook expects GET with query parameters.
	TokenMethod string

	// TokenBasicAuth sends client credentials via HTTP basic auth
	// instead of form fields (Twitter).
	TokenBasicAuth bool

	// ProfileInQuery passes the access token as an access_token query
	// parameter instead of a Bearer header (Facebook).
	ProfileInQuery bool

	// ProfileQuery are extra query parameters for the profile endpoint
	// (Facebook's fields projection).
	ProfileQuery url.Values

	// ProfileHeaders are extra headers for the profile endpoint
	// (LinkedIn's X-Restli-Protocol-Version).
	ProfileHeaders map[string]string

	// Enrich runs after the profile fetch to complete the raw payload
	// with follow-up API calls. Optional.
	Enrich func(ctx context.Context, f Fetcher, tok *Token, raw RawProfile) error

	// Normalize maps the raw payload to the shared Profile shape.
	Normalize func(raw RawProfile) *Profile
}

// client is the generic OAuth 2.0 authorization-code client. One
// instance per configured provider.
type client struct {
	spec  ProviderSpec
	creds Credentials
	http  *http.Client
}

// New builds a Strategy from a spec and application credentials.
func New(spec ProviderSpec, creds Credentials) (Strategy, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: %s: client id and secret are required", ErrInvalidConfiguration, spec.Name)
	}
	if creds.CallbackURL == "" {
		return nil, fmt.Errorf("%w: %s: callback URL is required", ErrInvalidConfiguration, spec.Name)
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = spec.DefaultScopes
	}
	if spec.Normalize == nil {
		return nil, fmt.Errorf("%w: %s: spec has no normalizer", ErrInvalidConfiguration, spec.Name)
	}
	return &client{
		spec:  spec,
		creds: creds,
		http:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *client) Name() string { return c.spec.Name }

// AuthorizationURL builds the provider consent URL.
func (c *client) AuthorizationURL(state string) (string, error) {
	u, err := url.Parse(c.spec.AuthURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: bad auth endpoint: %v", ErrInvalidConfiguration, c.spec.Name, err)
	}
	sep := c.spec.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	q := u.Query()
	q.Set("client_id", c.creds.ClientID)
	q.Set("redirect_uri", c.creds.CallbackURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.creds.Scopes, sep))
	q.Set("state", state)
	for k, vs := range c.spec.AuthParams {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// tokenResponse is the provider token endpoint payload. Error fields
// follow the OAuth 2.0 error response shape.
type tokenResponse struct {
	Token
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
}

// Exchange trades the authorization code for an access token.
func (c *client) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAuthorizationCode, c.spec.Name)
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("redirect_uri", c.creds.CallbackURL)
	form.Set("grant_type", "authorization_code")
	if !c.spec.TokenBasicAuth {
		form.Set("client_id", c.creds.ClientID)
		form.Set("client_secret", c.creds.ClientSecret)
	}

	req, err := c.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTokenExchange, c.spec.Name, err)
	}
	if c.spec.TokenBasicAuth {
		req.SetBasicAuth(url.QueryEscape(c.creds.ClientID), url.QueryEscape(c.creds.ClientSecret))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTokenExchange, c.spec.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %s: token http %d: %s", ErrTokenExchange, c.spec.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: %s: decode token response: %v", ErrTokenExchange, c.spec.Name, err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s - %s", ErrTokenExchange, c.spec.Name, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s: no access_token in response", ErrTokenExchange, c.spec.Name)
	}
	return &tr.Token, nil
}

// tokenRequest builds the token endpoint request honoring the spec's
// method quirk (Facebook takes the parameters as a GET query).
func (c *client) tokenRequest(ctx context.Context, form url.Values) (*http.Request, error) {
	if strings.EqualFold(c.spec.TokenMethod, http.MethodGet) {
		u, err := url.Parse(c.spec.TokenURL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range form {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.spec.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// FetchProfile calls the provider profile endpoint and runs the
// optional enrichment hook.
func (c *client) FetchProfile(ctx context.Context, tok *Token) (RawProfile, error) {
	u, err := url.Parse(c.spec.ProfileURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad profile endpoint: %v", ErrInvalidConfiguration, c.spec.Name, err)
	}
	q := u.Query()
	for k, vs := range c.spec.ProfileQuery {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	if c.spec.ProfileInQuery {
		q.Set("access_token", tok.AccessToken)
	}
	u.RawQuery = q.Encode()

	var raw RawProfile
	if err := c.GetJSON(ctx, u.String(), tok, c.spec.ProfileHeaders, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProfileFetch, c.spec.Name, err)
	}
	if c.spec.Enrich != nil {
		if err := c.spec.Enrich(ctx, c, tok, raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProfileFetch, c.spec.Name, err)
		}
	}
	return raw, nil
}

// GetJSON issues an authorized GET and decodes the JSON body into out.
func (c *client) GetJSON(ctx context.Context, rawurl string, tok *Token, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	if !c.spec.ProfileInQuery {
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("profile http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Normalize applies the spec normalizer and stamps the provider name.
func (c *client) Normalize(raw RawProfile) (*Profile, error) {
	p := c.spec.Normalize(raw)
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("%w: %s: profile has no id", ErrProfileFetch, c.spec.Name)
	}
	p.Provider = c.spec.Name
	return p, nil
}

// Authenticate runs the callback half of the flow: exchange the code,
// fetch the raw profile and normalize it.
func (c *client) Authenticate(ctx context.Context, req CallbackRequest) (*Result, error) {
	tok, err := c.Exchange(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	raw, err := c.FetchProfile(ctx, tok)
	if err != nil {
		return nil, err
	}
	profile, err := c.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &Result{
		Provider:    c.spec.Name,
		AccessToken: tok.AccessToken,
		Profile:     profile,
	}, nil
}

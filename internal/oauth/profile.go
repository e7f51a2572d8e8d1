// Package oauth implements OAuth 2.0 authorization-code login against
// social identity providers (Google, Facebook, GitHub, LinkedIn,
// Microsoft, Twitter). Every provider shares one generic client
// parameterized by a ProviderSpec; the differences between providers
// live in data, not code.
package oauth

import (
	"fmt"
	"strconv"
)

// Profile is the provider-independent identity extracted from a raw
// provider payload. ID and Provider are always present after a
// successful normalization; everything else is best-effort.
type Profile struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	DisplayName string         `json:"display_name"`
	Provider    string         `json:"provider"`
	Picture     string         `json:"picture,omitempty"`
	Locale      string         `json:"locale,omitempty"`
	Verified    bool           `json:"verified"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RawProfile is the JSON payload a provider's profile endpoint returns,
// before normalization. Helpers tolerate the type looseness of
// decoded JSON (numbers arrive as float64, missing keys as nil).
type RawProfile map[string]any

// Str returns the string value at key, or "" when absent or not a string.
func (r RawProfile) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value at key, or false when absent.
func (r RawProfile) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// ID renders the value at key as a string identifier. Some providers
// (GitHub) return numeric ids, which decode as float64.
func (r RawProfile) ID(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Map returns the nested object at key, or nil.
func (r RawProfile) Map(key string) map[string]any {
	if v, ok := r[key].(map[string]any); ok {
		return v
	}
	return nil
}

// Token is the result of exchanging an authorization code.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Result is what a strategy produces for a successful callback:
// the normalized profile plus the provider token that backed it.
type Result struct {
	Provider    string
	AccessToken string
	Profile     *Profile
}

// Credentials holds the per-provider application registration.
type Credentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string
}

// CallbackRequest carries the query parameters the provider sends back
// to the callback endpoint.
type CallbackRequest struct {
	Code  string
	State string
}

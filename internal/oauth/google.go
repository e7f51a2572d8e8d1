package oauth

import "net/url"

// GoogleSpec describes Google's OAuth 2.0 endpoints. access_type and
// prompt force a refresh token on every consent.
func GoogleSpec() ProviderSpec {
	return ProviderSpec{
		Name:          "google",
		AuthURL:       "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:      "https://oauth2.googleapis.com/token",
		ProfileURL:    "https://www.googleapis.com/oauth2/v3/userinfo",
		DefaultScopes: []string{"openid", "profile", "email"},
		AuthParams: url.Values{
			"access_type": {"offline"},
			"prompt":      {"consent"},
		},
		Normalize: func(raw RawProfile) *Profile {
			return &Profile{
				ID:          raw.ID("sub"),
				Email:       raw.Str("email"),
				FirstName:   raw.Str("given_name"),
				LastName:    raw.Str("family_name"),
				DisplayName: raw.Str("name"),
				Picture:     raw.Str("picture"),
				Locale:      raw.Str("locale"),
				Verified:    raw.Bool("email_verified"),
			}
		},
	}
}

// NewGoogle builds the Google strategy.
func NewGoogle(creds Credentials) (Strategy, error) {
	return New(GoogleSpec(), creds)
}

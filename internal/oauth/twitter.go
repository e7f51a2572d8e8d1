package oauth

import "net/url"

// TwitterSpec describes the Twitter API v2 OAuth 2.0 endpoints. The
// token endpoint authenticates the app with HTTP basic auth, and
// /2/users/me wraps the profile in a "data" envelope. Twitter never
// returns an email over OAuth 2.0, so users land without one and are
// linked through the (provider, provider_id) identity instead.
func TwitterSpec() ProviderSpec {
	return ProviderSpec{
		Name:           "twitter",
		AuthURL:        "https://twitter.com/i/oauth2/authorize",
		TokenURL:       "https://api.twitter.com/2/oauth2/token",
		ProfileURL:     "https://api.twitter.com/2/users/me",
		DefaultScopes:  []string{"tweet.read", "users.read"},
		TokenBasicAuth: true,
		ProfileQuery: url.Values{
			"user.fields": {"profile_image_url,verified"},
		},
		Normalize: func(raw RawProfile) *Profile {
			data := RawProfile(raw.Map("data"))
			if data == nil {
				data = raw
			}
			first, last := splitName(data.Str("name"))
			display := data.Str("name")
			if display == "" {
				display = data.Str("username")
			}
			return &Profile{
				ID:          data.ID("id"),
				FirstName:   first,
				LastName:    last,
				DisplayName: display,
				Picture:     data.Str("profile_image_url"),
				Verified:    data.Bool("verified"),
				Metadata: map[string]any{
					"username": data.Str("username"),
				},
			}
		},
	}
}

// NewTwitter builds the Twitter strategy.
func NewTwitter(creds Credentials) (Strategy, error) {
	return New(TwitterSpec(), creds)
}

// Package auth contains the HTTP controllers for the social login
// flow: start, callback, code exchange, provider discovery and the
// diagnostic landing pages.
package auth

import (
	"time"

	"github.com/dropDatabas3/socialauth/internal/http/services/session"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/workflow"
)

// CookieConfig describes the session cookie set on successful login.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string // lax | strict | none
	Secure   bool
	TTL      time.Duration
}

// Deps wires the controllers.
type Deps struct {
	Registry   *oauth.Registry
	Flow       *workflow.Workflow
	Codes      *session.Codes
	SuccessURL string
	FailureURL string
	Cookie     CookieConfig
}

// Controllers groups the social login controllers.
type Controllers struct {
	Start     *StartController
	Callback  *CallbackController
	Exchange  *ExchangeController
	Providers *ProvidersController
	Pages     *PagesController
}

// NewControllers builds all controllers from shared dependencies.
func NewControllers(deps Deps) *Controllers {
	return &Controllers{
		Start:     &StartController{deps: deps},
		Callback:  &CallbackController{deps: deps},
		Exchange:  &ExchangeController{codes: deps.Codes},
		Providers: &ProvidersController{registry: deps.Registry},
		Pages:     &PagesController{},
	}
}

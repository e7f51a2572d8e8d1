package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Login metrics live in a standalone package to avoid import cycles
// between the controllers and the HTTP server package.

var (
	LoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_login_attempts_total",
		Help: "Logins sociales por proveedor y resultado",
	}, []string{"provider", "result"}) // result: success|error

	LoginCodesRedeemedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_login_codes_redeemed_total",
		Help: "Canjes de login codes por resultado",
	}, []string{"result"}) // result: ok|not_found
)

// RegisterLogin registers the login metrics on the given registry (or
// default if nil).
func RegisterLogin(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{LoginAttemptsTotal, LoginCodesRedeemedTotal} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveLogin registra el resultado de un login para el proveedor.
func ObserveLogin(provider, result string) {
	LoginAttemptsTotal.WithLabelValues(provider, result).Inc()
}

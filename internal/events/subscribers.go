package events

import (
	"context"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// RegisterLogging subscribes the default observers: successful logins
// at info, failed ones at warn.
func RegisterLogging(bus *Bus) {
	bus.Subscribe(AuthSuccess, func(ctx context.Context, ev Event) error {
		logger.From(ctx).Info("social login succeeded",
			logger.Component("events"),
			logger.Provider(str(ev.Payload, "provider")),
			logger.UserID(str(ev.Payload, "user_id")),
			logger.Bool("created", boolean(ev.Payload, "created")),
		)
		return nil
	})
	bus.Subscribe(AuthError, func(ctx context.Context, ev Event) error {
		logger.From(ctx).Warn("social login failed",
			logger.Component("events"),
			logger.Provider(str(ev.Payload, "provider")),
			logger.String("reason", str(ev.Payload, "error")),
		)
		return nil
	})
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolean(m map[string]any, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

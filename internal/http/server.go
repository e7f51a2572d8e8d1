package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Server envuelve http.Server con timeouts sanos y shutdown graceful.
type Server struct {
	srv *stdhttp.Server
}

// NewServer construye el servidor. Los timeouts son fijos: el flujo de
// login es corto, no hay streaming.
func NewServer(addr string, handler stdhttp.Handler) *Server {
	return &Server{
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start bloquea hasta que el servidor termina. ErrServerClosed no es un
// error: significa que Shutdown hizo su trabajo.
func (s *Server) Start() error {
	logger.L().Info("http server listening",
		logger.Component("http"),
		logger.String("addr", s.srv.Addr),
	)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drena las conexiones en curso respetando el contexto.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.L().Info("http server shutting down", logger.Component("http"))
	return s.srv.Shutdown(ctx)
}

package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/heimgewebe/mitschreiber/internal/config"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	log     *zap.Logger
}

// NewServer builds the journal API server. customPort overrides the
// configured port when positive.
func NewServer(cfg *config.Config, handler *Handler, log *zap.Logger, customPort int) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Web.Host, fmt.Sprint(port)),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		log:     log,
	}
}

// Start blocks serving until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("starting web server", zap.String("addr", "http://"+s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

// Package httpapi is the HTTP transport of the server: routing, auth
// middleware and JSON request/response handling on top of the services.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/server/config"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(cfg *config.Config, auth *AuthHandler, todos *TodoHandler, uploads *UploadHandler, logger logging.Logger) *Server {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify-email", auth.VerifyEmail).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", auth.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgot-password", auth.ForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/reset-password", auth.ResetPassword).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware([]byte(cfg.SecretKey)))

	protected.HandleFunc("/auth/delete-account", auth.DeleteAccount).Methods(http.MethodDelete)

	protected.HandleFunc("/todos", todos.List).Methods(http.MethodGet)
	protected.HandleFunc("/todos", todos.Create).Methods(http.MethodPost)
	protected.HandleFunc("/todos/{id}", todos.Get).Methods(http.MethodGet)
	protected.HandleFunc("/todos/{id}", todos.Update).Methods(http.MethodPut)
	protected.HandleFunc("/todos/{id}", todos.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/uploads", uploads.Presign).Methods(http.MethodPost)

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.EndpointAddrHTTP,
			Handler: r,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "http server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ServeConfig configures the HTTP listener and ambient middleware.
type ServeConfig struct {
	Addr        string
	Auth        AuthConfig
	RateLimitRPS   float64
	RateLimitBurst int
}

// Mux builds the routed, middleware-wrapped http.Handler for s. Split from
// ListenAndServe so tests can drive it with httptest.NewServer directly.
func (s *Server) Mux(cfg ServeConfig) http.Handler {
	operatorAuth := withAuth(cfg.Auth, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.Handle("/approve/", operatorAuth(http.HandlerFunc(s.handleApprove)))
	mux.Handle("/deny/", operatorAuth(http.HandlerFunc(s.handleDeny)))
	mux.HandleFunc("/webhook/callback/", s.handleWebhookCallback)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)

	var handler http.Handler = mux
	if cfg.RateLimitRPS > 0 {
		handler = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware(handler)
	}
	handler = withRecovery(s.logger)(handler)
	handler = withLogging(s.logger)(handler)
	handler = withRequestID(s.clock)(handler)
	return handler
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled,
// then gracefully drains in-flight requests (grounded on the teacher's
// cmd/helm runServer signal-driven shutdown, adapted to a caller-supplied
// context instead of direct signal.Notify wiring).
func (s *Server) ListenAndServe(ctx context.Context, cfg ServeConfig) error {
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: s.Mux(cfg),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("clawsecd listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("clawsecd shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// HTTPService runs an http.Server as a supervised service. Shutdown drains
// connections for at most shutdownTimeout.
type HTTPService struct {
	server          *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server. When listener is nil the server listens on
// its own Addr.
func NewHTTPService(server *http.Server, listener net.Listener, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, listener: listener, shutdownTimeout: shutdownTimeout}
}

func (h *HTTPService) String() string { return "http-server" }

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if h.listener != nil {
			err = h.server.Serve(h.listener)
		} else {
			err = h.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

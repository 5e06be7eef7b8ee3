package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// shutdownTimeout bounds how long an in-flight scrape may delay process exit.
const shutdownTimeout = 5 * time.Second

// Endpoint serves the Prometheus metrics over HTTP for the duration of a
// scan or watch run.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint binds the metrics to a listen address. The server does not
// start until Start is called.
func NewEndpoint(listenAddress string, metrics *Metrics) *Endpoint {
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
	}
}

// Start runs the HTTP server in the background and shuts it down when ctx is
// cancelled. Serving errors are logged, not returned: a broken metrics
// endpoint must never take down an analysis run.
func (e *Endpoint) Start(ctx context.Context) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	e.server = &http.Server{
		Addr:              e.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics endpoint starting", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics endpoint failed", "address", e.listenAddress, "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics endpoint shutdown failed", "error", err)
		}
	}()
}

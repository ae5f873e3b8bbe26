package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/circuitgrid/internal/circuit"
	"github.com/vk/circuitgrid/internal/ctxlog"
)

// circuitStatus is one entry of the /circuits report.
type circuitStatus struct {
	Name       string   `json:"name"`
	Version    uint64   `json:"version"`
	Generation uint64   `json:"generation"`
	Modified   bool     `json:"modified"`
	Annotated  bool     `json:"annotated"`
	Components int      `json:"components"`
	Wires      int      `json:"wires"`
	Nets       int      `json:"nets"`
	Problems   []string `json:"problems,omitempty"`
}

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// circuitsHandler reports the state of every circuit of the design.
func (a *App) circuitsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), a.logger)
	out, err := a.status(ctx)
	if err != nil {
		a.logger.Error("Building circuit status failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		a.logger.Warn("Writing circuit status failed", "error", err)
	}
}

func (a *App) status(ctx context.Context) ([]circuitStatus, error) {
	circuits := a.design.Circuits()
	out := make([]circuitStatus, 0, len(circuits))
	for _, c := range circuits {
		nl, err := a.netlists.Get(ctx, c)
		if err != nil {
			return nil, err
		}
		st := circuitStatus{
			Name:      c.Name(),
			Nets:      len(nl.Nets),
			Modified:  c.Modified(),
			Annotated: c.IsAnnotated(),
		}
		for _, p := range nl.Problems {
			st.Problems = append(st.Problems, p.String())
		}
		err = circuit.Run(ctx, c, circuit.Read, "status", func(context.Context, *circuit.Mutator) error {
			st.Version = c.Version()
			st.Generation = c.Generation()
			st.Components = len(c.NonWires())
			st.Wires = len(c.Wires())
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// newHTTPServer builds the health, metrics and status server.
func (a *App) newHTTPServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/circuits", a.circuitsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveHTTP runs the server until ctx is done, then shuts it down.
func (a *App) serveHTTP(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.settings.HealthPort <= 0 {
		logger.Warn("Health check server not started: disabled")
		return nil
	}

	a.httpServer = a.newHTTPServer(a.settings.HealthPort)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", a.httpServer.Addr))
		errCh <- a.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health check server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health check server shutdown failed: %w", err)
	}
	logger.Debug("Health check server shut down gracefully.")
	return nil
}

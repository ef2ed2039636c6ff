package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stagehand"
	"github.com/aretw0/stagehand/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:generate go tool oapi-codegen -package http -generate types,chi-server,spec -o api.gen.go ../../../api/openapi.yaml

// StatusSource provides the status snapshot served on /status.
type StatusSource interface {
	Snapshot() observability.Status
}

// Server implements the generated ServerInterface
type Server struct {
	Status   StatusSource
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Ensure Server implements ServerInterface
var _ ServerInterface = (*Server)(nil)

// NewHandler creates the HTTP handler. A nil gatherer disables /metrics.
func NewHandler(status StatusSource, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	server := &Server{Status: status, Gatherer: gatherer, Logger: logger}
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			logger.Error("failed to load OpenAPI spec", "err", err)
			return
		}
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(spec)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	handler := HandlerFromMux(server, r)
	return enableCORS(handler)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealthz handles GET /healthz.
func (s *Server) GetHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, "GetHealthz", Health{Status: "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	s.writeJSON(w, "GetInfo", Info{
		App:        "stagehand",
		Version:    strings.TrimSpace(stagehand.Version),
		ApiVersion: apiVersion,
	})
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request, params GetStatusParams) {
	if s.Status == nil {
		http.Error(w, "status not available", http.StatusServiceUnavailable)
		return
	}

	status := mapStatusFromDomain(s.Status.Snapshot())
	if params.Slot != nil {
		slot := *params.Slot
		if slot < 0 || slot >= len(status.Slots) {
			http.Error(w, fmt.Sprintf("slot %d not found", slot), http.StatusNotFound)
			return
		}
		status.Slots = status.Slots[slot : slot+1]
	}
	s.writeJSON(w, "GetStatus", status)
}

func (s *Server) writeJSON(w http.ResponseWriter, op string, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error(op+" response encode failed", "err", err)
	}
}

func mapStatusFromDomain(st observability.Status) Status {
	out := Status{
		StartedAt:   st.StartedAt,
		Pending:     st.Pending,
		Shipped:     st.Shipped,
		Escalations: st.Escalations,
		Slots:       make([]SlotStatus, len(st.Slots)),
	}
	for i, slot := range st.Slots {
		out.Slots[i] = SlotStatus{
			Slot:       slot.Slot,
			TrialId:    optional(slot.TrialID),
			Stage:      optional(slot.Stage),
			StageIndex: slot.StageIndex,
			Done:       slot.Done,
			Outcome:    optional(slot.Outcome),
			Completed:  slot.Completed,
			Aborted:    slot.Aborted,
			Resets:     slot.Resets,
			UpdatedAt:  slot.UpdatedAt,
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Serve listens on addr until ctx is done, then shuts the server down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/httputil"
	"github.com/quietmetrics/beacon/pkg/observability"
	"github.com/quietmetrics/beacon/pkg/sanitize"
)

const maxBodyBytes = 64 * 1024

// sinkServer receives events from pipeline clients during development,
// applying the same PII policy a client would.
type sinkServer struct {
	store     *EventStore
	sanitizer *sanitize.Sanitizer
	logger    *observability.Logger
	metrics   *observability.Metrics
}

type ingestRequest struct {
	Name       string           `json:"name"`
	Properties event.Properties `json:"properties"`
	Timestamp  time.Time        `json:"timestamp"`
}

func newSinkServer(store *EventStore, sanitizer *sanitize.Sanitizer, logger *observability.Logger, metrics *observability.Metrics) *sinkServer {
	return &sinkServer{
		store:     store,
		sanitizer: sanitizer,
		logger:    logger,
		metrics:   metrics,
	}
}

// router assembles the API routes with request-ID, logging, recovery, CORS
// and metrics middleware applied to everything.
func (s *sinkServer) router(checker *observability.HealthChecker, registry *prometheus.Registry) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/event", s.handleIngest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/events", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{id}", s.handleGet).Methods(http.MethodGet)

	// Health and metrics share the observability package's plain mux.
	ops := http.NewServeMux()
	observability.RegisterHealthRoutes(ops, checker)
	observability.RegisterMetricsEndpoint(ops, registry)
	r.PathPrefix("/health").Handler(ops)
	r.Handle("/metrics", ops)

	chain := httputil.Chain(
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware(s.logger),
		observability.HTTPMetricsMiddleware(s.metrics),
		httputil.CORSMiddleware("*"),
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)
	return chain(r)
}

// handleIngest accepts one event, sanitizes its properties and stores it.
func (s *sinkServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "event name is required")
		return
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	stored := StoredEvent{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Properties: s.sanitizer.Sanitize(req.Properties),
		Timestamp:  ts,
		ReceivedAt: time.Now().UTC(),
	}
	s.store.Add(stored)
	s.metrics.EventsTotal.WithLabelValues(req.Name, "ingested").Inc()
	observability.FromContext(r.Context()).Debugf("stored event %s as %q", stored.ID, req.Name)

	httputil.WriteAccepted(w, map[string]string{"id": stored.ID})
}

// handleGet returns one stored event by ID.
func (s *sinkServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	stored, ok := s.store.Get(id)
	if !ok {
		httputil.WriteNotFound(w, "no event with that id")
		return
	}
	httputil.WriteSuccess(w, stored)
}

// handleList returns the most recent events, newest first.
func (s *sinkServer) handleList(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseQueryInt(r, "limit", 100)
	httputil.WriteSuccess(w, map[string]any{
		"total":  s.store.Len(),
		"events": s.store.Recent(limit),
	})
}

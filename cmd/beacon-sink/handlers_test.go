package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmetrics/beacon/pkg/observability"
	"github.com/quietmetrics/beacon/pkg/sanitize"
)

func newTestRouter(t *testing.T) (http.Handler, *EventStore) {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	store := NewEventStore(10)
	sink := newSinkServer(store,
		sanitize.New(sanitize.DefaultRules()),
		observability.NewNopLogger(),
		metrics,
	)
	return sink.router(observability.NewHealthChecker("test"), registry), store
}

func postEvent(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/event", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestStoresSanitizedEvent(t *testing.T) {
	router, store := newTestRouter(t)

	rec := postEvent(t, router, `{"name":"signup","properties":{"email":"a@b.com","tier":"pro"}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])

	require.Equal(t, 1, store.Len())
	stored := store.Recent(1)[0]
	assert.Equal(t, "signup", stored.Name)
	assert.Equal(t, "pro", stored.Properties["tier"])
	assert.NotContains(t, stored.Properties, "email")
	assert.False(t, stored.Timestamp.IsZero())
}

func TestIngestRejectsMissingName(t *testing.T) {
	router, store := newTestRouter(t)

	rec := postEvent(t, router, `{"properties":{"tier":"pro"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestIngestRejectsBrokenJSON(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := postEvent(t, router, `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReturnsNewestFirst(t *testing.T) {
	router, _ := newTestRouter(t)

	postEvent(t, router, `{"name":"first"}`)
	postEvent(t, router, `{"name":"second"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total  int           `json:"total"`
		Events []StoredEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "second", resp.Events[0].Name)
}

func TestGetEventByID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postEvent(t, router, `{"name":"signup","properties":{"tier":"pro"}}`)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/"+resp["id"], nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored StoredEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "signup", stored.Name)
	assert.Equal(t, "pro", stored.Properties["tier"])
}

func TestGetEventUnknownIDReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no event with that id")
}

func TestResponsesCarryRequestID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postEvent(t, router, `{"name":"pageview"}`)
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestStoreEvictsOldest(t *testing.T) {
	store := NewEventStore(2)
	store.Add(StoredEvent{Name: "a"})
	store.Add(StoredEvent{Name: "b"})
	store.Add(StoredEvent{Name: "c"})

	assert.Equal(t, 2, store.Len())
	recent := store.Recent(0)
	assert.Equal(t, "c", recent[0].Name)
	assert.Equal(t, "b", recent[1].Name)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	postEvent(t, router, `{"name":"pageview"}`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beacon_events_total")
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	sink := newSinkServer(NewEventStore(10),
		sanitize.New(sanitize.DefaultRules()),
		observability.NewNopLogger(),
		metrics,
	)

	checker := observability.NewHealthChecker("test")
	checker.AddCheck("sanitizer_rules", func(context.Context) error {
		return errors.New("rule file missing")
	})
	router := sink.router(checker, registry)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "rule file missing")

	// Liveness stays green while a dependency is down.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/event", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

package monitoring

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/urlcheck"
)

type recordingTracker struct {
	mu      sync.Mutex
	enabled bool
	events  []event.Event
}

func (t *recordingTracker) TrackEvent(e event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *recordingTracker) IsEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *recordingTracker) Events() []event.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]event.Event, len(t.events))
	copy(out, t.events)
	return out
}

func newSink(t *testing.T) (*httptest.Server, *[]Report) {
	t.Helper()
	var mu sync.Mutex
	var received []Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var report Report
		require.NoError(t, json.Unmarshal(body, &report))
		mu.Lock()
		received = append(received, report)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestReportErrorDeliversToSink(t *testing.T) {
	srv, received := newSink(t)
	r := NewReporter(srv.URL, WithEnvironment("production"))

	r.ReportError("provider_init", errors.New("script rejected"), map[string]string{
		"provider": "plausible",
	})

	require.Len(t, *received, 1)
	report := (*received)[0]
	_, err := uuid.Parse(report.ID)
	assert.NoError(t, err, "report ID should be a valid UUID")
	assert.Equal(t, SeverityError, report.Severity)
	assert.Equal(t, "provider_init", report.Reason)
	assert.Equal(t, "script rejected", report.Message)
	assert.Equal(t, "plausible", report.Context["provider"])
	assert.Equal(t, "production", report.Environment)
	assert.False(t, report.Timestamp.IsZero())
}

func TestReportIDsAreUnique(t *testing.T) {
	srv, received := newSink(t)
	r := NewReporter(srv.URL)

	r.ReportWarning("a", "first", nil)
	r.ReportWarning("b", "second", nil)

	require.Len(t, *received, 2)
	assert.NotEqual(t, (*received)[0].ID, (*received)[1].ID)
}

func TestNoRemoteDeliveryWithoutDSN(t *testing.T) {
	tracker := &recordingTracker{enabled: true}
	r := NewReporter("", WithTracker(tracker))

	assert.NotPanics(t, func() {
		r.ReportError("provider_init", errors.New("boom"), nil)
	})
	// Self-telemetry still happens.
	assert.Len(t, tracker.Events(), 1)
}

func TestSelfTelemetryOnlyWhenEnabled(t *testing.T) {
	tracker := &recordingTracker{enabled: false}
	r := NewReporter("", WithTracker(tracker))

	r.ReportError("provider_init", errors.New("boom"), nil)
	assert.Empty(t, tracker.Events())

	tracker.enabled = true
	r.ReportError("provider_init", errors.New("boom"), nil)

	events := tracker.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.NameClientError, events[0].Name)
	assert.Equal(t, "provider_init", events[0].Properties["reason"])
}

func TestReportUnsafeURLCarriesNoURLContent(t *testing.T) {
	srv, received := newSink(t)
	tracker := &recordingTracker{enabled: true}
	r := NewReporter(srv.URL, WithTracker(tracker))

	r.ReportUnsafeURL(urlcheck.ReasonCrossOrigin, true)

	require.Len(t, *received, 1)
	report := (*received)[0]
	assert.Equal(t, "unsafe_url", report.Reason)
	assert.Equal(t, string(urlcheck.ReasonCrossOrigin), report.Context["validation_reason"])
	assert.Equal(t, "true", report.Context["url_present"])
	assert.Len(t, report.Context, 2, "no other detail about the URL may be carried")

	events := tracker.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "unsafe_url", events[0].Properties["reason"])
}

func TestUnreachableSinkDoesNotPanic(t *testing.T) {
	r := NewReporter("http://127.0.0.1:1/reports")
	assert.NotPanics(t, func() {
		r.ReportError("provider_init", errors.New("boom"), nil)
	})
}

var _ urlcheck.Monitor = (*Reporter)(nil)

package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmetrics/beacon/pkg/observability"
)

func TestWriteJSONAndErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteAccepted(rec, map[string]string{"status": "ok"}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	WriteBadRequest(rec, "missing name")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing name", body["error"])
}

func TestParseJSONOrError(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pageview"}`))
		rec := httptest.NewRecorder()
		var p payload
		require.True(t, ParseJSONOrError(rec, r, &p))
		assert.Equal(t, "pageview", p.Name)
	})

	t.Run("invalid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
		rec := httptest.NewRecorder()
		var p payload
		assert.False(t, ParseJSONOrError(rec, r, &p))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=25&bad=x", nil)
	assert.Equal(t, 25, ParseQueryInt(r, "limit", 10))
	assert.Equal(t, 10, ParseQueryInt(r, "missing", 10))
	assert.Equal(t, 10, ParseQueryInt(r, "bad", 10))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(observability.NewNopLogger())(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("handler exploded")
		}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.DebugLevel, &buf)

	var seenID string
	handler := Chain(RequestIDMiddleware(logger), LoggingMiddleware(logger))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = observability.GetRequestID(r.Context())
			observability.FromContext(r.Context()).Debug("handling")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.NotEmpty(t, seenID)
	_, err := uuid.Parse(seenID)
	assert.NoError(t, err)
	assert.Equal(t, seenID, rec.Header().Get("X-Request-ID"))

	// Both the handler line and the access line carry the request ID.
	assert.Equal(t, 2, strings.Count(buf.String(), seenID))
}

func TestRequestIDMiddlewarePropagatesSuppliedID(t *testing.T) {
	handler := RequestIDMiddleware(observability.NewNopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "trace-123", observability.GetRequestID(r.Context()))
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))
}

func TestWriteNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFound(rec, "no event with that id")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no event with that id", body["error"])
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware("*")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/event", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mark("outer"), mark("inner"))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}

package monitoring

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/observability"
	"github.com/quietmetrics/beacon/pkg/urlcheck"
)

// Severity classifies a report.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Report is the JSON document delivered to the remote sink.
type Report struct {
	ID          string            `json:"id"`
	Severity    Severity          `json:"severity"`
	Reason      string            `json:"reason"`
	Message     string            `json:"message,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Tracker is the subset of the analytics facade the reporter uses for
// self-telemetry. Reports are only mirrored into analytics while the
// pipeline is enabled.
type Tracker interface {
	TrackEvent(e event.Event)
	IsEnabled() bool
}

// Reporter forwards structured reports to the configured sinks. All methods
// are best-effort: a failing sink is logged, never propagated.
type Reporter struct {
	dsn         string
	environment string
	tracker     Tracker
	client      *http.Client
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithTracker mirrors reports into the analytics event stream.
func WithTracker(tracker Tracker) Option {
	return func(r *Reporter) { r.tracker = tracker }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *observability.Logger) Option {
	return func(r *Reporter) { r.logger = logger }
}

// WithMetrics records report counts on the pipeline metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Reporter) { r.metrics = metrics }
}

// WithHTTPClient overrides the client used for remote delivery.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Reporter) { r.client = client }
}

// WithEnvironment tags every report with the deployment environment.
func WithEnvironment(env string) Option {
	return func(r *Reporter) { r.environment = env }
}

// NewReporter creates a reporter. An empty dsn disables remote delivery;
// self-telemetry and metrics still apply.
func NewReporter(dsn string, opts ...Option) *Reporter {
	r := &Reporter{
		dsn:    dsn,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("monitoring")
	return r
}

// ReportError reports a recovered pipeline error under the given reason
// code.
func (r *Reporter) ReportError(reason string, err error, context map[string]string) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.report(SeverityError, reason, msg, context)
}

// ReportWarning reports a non-fatal condition under the given reason code.
func (r *Reporter) ReportWarning(reason, message string, context map[string]string) {
	r.report(SeverityWarning, reason, message, context)
}

// ReportUnsafeURL implements urlcheck.Monitor. Only the validation reason
// and a presence flag are carried; the offending URL itself never leaves
// the page.
func (r *Reporter) ReportUnsafeURL(reason urlcheck.Reason, urlPresent bool) {
	r.report(SeverityWarning, "unsafe_url", "navigation blocked", map[string]string{
		"validation_reason": string(reason),
		"url_present":       strconv.FormatBool(urlPresent),
	})
}

func (r *Reporter) report(severity Severity, reason, message string, context map[string]string) {
	defer observability.RecoverPanic(r.logger, "monitoring report")

	if r.metrics != nil {
		r.metrics.ErrorReportsTotal.WithLabelValues(reason).Inc()
	}
	r.logger.WithFields(map[string]any{
		"severity": string(severity),
		"reason":   reason,
	}).Warn(message)

	if r.tracker != nil && r.tracker.IsEnabled() {
		r.tracker.TrackEvent(event.New(event.NameClientError, event.Properties{
			"reason":   reason,
			"severity": string(severity),
		}))
	}

	if r.dsn == "" {
		return
	}
	r.deliver(Report{
		ID:          uuid.NewString(),
		Severity:    severity,
		Reason:      reason,
		Message:     message,
		Context:     context,
		Environment: r.environment,
		Timestamp:   time.Now().UTC(),
	})
}

func (r *Reporter) deliver(report Report) {
	body, err := json.Marshal(report)
	if err != nil {
		r.logger.WithError(err).Error("failed to encode report")
		return
	}

	resp, err := r.client.Post(r.dsn, "application/json", bytes.NewReader(body))
	if err != nil {
		r.logger.WithError(err).Warn("report delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		r.logger.WithField("status", resp.StatusCode).Warn("report rejected by sink")
	}
}

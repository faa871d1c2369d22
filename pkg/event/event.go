package event

import "time"

// Name identifies an event. The pipeline emits a fixed set of names but
// callers may track arbitrary custom names as well.
type Name string

const (
	// NamePageView is emitted on every page view.
	NamePageView Name = "pageview"
	// NameCTAClick is emitted when a call-to-action element is clicked.
	NameCTAClick Name = "cta_click"
	// NameDownload is emitted when a download link is followed.
	NameDownload Name = "download"
	// NameNavigation is emitted on internal navigation.
	NameNavigation Name = "navigation"
	// NameScrollDepth is emitted once per scroll milestone.
	NameScrollDepth Name = "scroll_depth"
	// NameWebVitals is emitted once per populated Core Web Vitals metric.
	NameWebVitals Name = "web_vitals"
	// NameClientError is emitted by the monitoring reporter for
	// self-reported pipeline errors.
	NameClientError Name = "client_error"
)

// Properties is a flat map of event properties. Values are restricted to
// strings, numbers and booleans; nested maps are not permitted and are
// rejected by the sanitizer.
type Properties map[string]any

// Event is the transient message delivered to a provider.
type Event struct {
	Name       Name
	Properties Properties
	// Timestamp defaults to the creation time when zero. Caller-supplied
	// values are preserved verbatim.
	Timestamp time.Time
}

// New creates an event stamped with the current time.
func New(name Name, props Properties) Event {
	return Event{
		Name:       name,
		Properties: props,
		Timestamp:  time.Now(),
	}
}

// WithDefaultTimestamp returns the event unchanged if it already carries a
// timestamp, or a copy stamped with now.
func (e Event) WithDefaultTimestamp(now time.Time) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// CoreWebVitals is an accumulator record for the six browser performance
// metrics. Each field is populated at most once per page lifetime; a
// partially filled record is valid and reportable.
type CoreWebVitals struct {
	// LCP is Largest Contentful Paint in milliseconds.
	LCP *float64
	// FID is First Input Delay in milliseconds.
	FID *float64
	// CLS is Cumulative Layout Shift, a unitless ratio.
	CLS *float64
	// TTFB is Time To First Byte in milliseconds.
	TTFB *float64
	// FCP is First Contentful Paint in milliseconds.
	FCP *float64
	// INP is Interaction to Next Paint in milliseconds.
	INP *float64
}

// IsEmpty reports whether no metric has been populated.
func (v CoreWebVitals) IsEmpty() bool {
	return v.LCP == nil && v.FID == nil && v.CLS == nil &&
		v.TTFB == nil && v.FCP == nil && v.INP == nil
}

// Metric pairs a metric name with its finalized value.
type Metric struct {
	Name  string
	Value float64
}

// Metrics returns the populated metrics in a fixed order. Absent metrics
// are skipped.
func (v CoreWebVitals) Metrics() []Metric {
	var out []Metric
	add := func(name string, val *float64) {
		if val != nil {
			out = append(out, Metric{Name: name, Value: *val})
		}
	}
	add("LCP", v.LCP)
	add("FID", v.FID)
	add("CLS", v.CLS)
	add("TTFB", v.TTFB)
	add("FCP", v.FCP)
	add("INP", v.INP)
	return out
}

// Float64 returns a pointer to v, for populating optional metrics.
func Float64(v float64) *float64 {
	return &v
}

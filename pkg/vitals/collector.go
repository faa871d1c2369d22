package vitals

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/host"
	"github.com/quietmetrics/beacon/pkg/observability"
)

// FallbackDelay bounds how long the collector waits for a lifecycle signal
// before finalizing on its own.
const FallbackDelay = 10 * time.Second

// inpPercentileThreshold is the interaction count above which INP switches
// from the maximum to the 98th percentile.
const inpPercentileThreshold = 10

// ReportFunc receives the finalized snapshot. Called at most once.
type ReportFunc func(event.CoreWebVitals)

// Collector accumulates Core Web Vitals until finalization.
type Collector struct {
	perf      host.Performance
	lifecycle host.Lifecycle
	clock     clockwork.Clock
	logger    *observability.Logger
	metrics   *observability.Metrics
	onReport  ReportFunc

	mu        sync.Mutex
	started   bool
	finalized bool
	observers []host.Observer
	cancels   []func()
	timer     clockwork.Timer

	lcp          *float64
	fid          *float64
	cls          float64
	clsSeen      bool
	ttfb         *float64
	fcp          *float64
	interactions []float64
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *observability.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithMetrics records snapshot counts on the pipeline metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Collector) { c.metrics = metrics }
}

// WithClock overrides the clock used for the fallback timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Collector) { c.clock = clock }
}

// NewCollector creates a collector that delivers its snapshot to onReport.
func NewCollector(perf host.Performance, lifecycle host.Lifecycle, onReport ReportFunc, opts ...Option) *Collector {
	c := &Collector{
		perf:      perf,
		lifecycle: lifecycle,
		clock:     clockwork.NewRealClock(),
		logger:    observability.NewNopLogger(),
		onReport:  onReport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("vitals")
	return c
}

// Start begins observation. Idempotent: a second call is a no-op.
func (c *Collector) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.readTTFB()
	c.observeLCP()
	c.observeFID()
	c.observeCLS()
	c.observeFCP()
	c.observeINP()

	cancelHidden := c.lifecycle.OnVisibilityHidden(c.finalize)
	cancelPageHide := c.lifecycle.OnPageHide(c.finalize)

	c.mu.Lock()
	c.cancels = append(c.cancels, cancelHidden, cancelPageHide)
	c.timer = c.clock.AfterFunc(FallbackDelay, c.finalize)
	c.mu.Unlock()
}

// readTTFB reads responseStart from the navigation timing entry, once. A
// missing entry leaves TTFB absent, not zero.
func (c *Collector) readTTFB() {
	entry, ok := c.perf.NavigationEntry()
	if !ok {
		return
	}
	c.mu.Lock()
	c.ttfb = event.Float64(entry.ResponseStart)
	c.mu.Unlock()
}

// observe wraps Performance.Observe with per-metric failure isolation.
func (c *Collector) observe(entryType string, buffered bool, fn func(host.Entry)) host.Observer {
	wrapped := func(e host.Entry) {
		defer observability.RecoverPanic(c.logger, "vitals entry callback")
		fn(e)
	}
	obs, err := c.perf.Observe(entryType, buffered, wrapped)
	if err != nil {
		c.logger.WithError(err).
			WithField("entry_type", entryType).
			Warn("metric unavailable, skipping")
		return nil
	}
	c.mu.Lock()
	c.observers = append(c.observers, obs)
	c.mu.Unlock()
	return obs
}

func (c *Collector) observeLCP() {
	c.observe("largest-contentful-paint", true, func(e host.Entry) {
		value := e.RenderTime
		if value == 0 {
			value = e.LoadTime
		}
		c.mu.Lock()
		// Last entry wins until finalized.
		c.lcp = event.Float64(value)
		c.mu.Unlock()
	})
}

func (c *Collector) observeFID() {
	done := false
	var obs host.Observer
	obs = c.observe("first-input", true, func(e host.Entry) {
		c.mu.Lock()
		if done {
			c.mu.Unlock()
			return
		}
		done = true
		c.fid = event.Float64(e.ProcessingStart - e.StartTime)
		o := obs
		c.mu.Unlock()
		// Only the first input matters; stop observing immediately.
		if o != nil {
			o.Disconnect()
		}
	})
	// A buffered entry may have fired before the handle was assigned.
	c.mu.Lock()
	fired := done
	c.mu.Unlock()
	if fired && obs != nil {
		obs.Disconnect()
	}
}

func (c *Collector) observeCLS() {
	c.observe("layout-shift", true, func(e host.Entry) {
		if e.HadRecentInput {
			return
		}
		c.mu.Lock()
		c.cls += e.Value
		c.clsSeen = true
		c.mu.Unlock()
	})
}

func (c *Collector) observeFCP() {
	done := false
	var obs host.Observer
	obs = c.observe("paint", false, func(e host.Entry) {
		if e.Name != "first-contentful-paint" {
			return
		}
		c.mu.Lock()
		if done {
			c.mu.Unlock()
			return
		}
		done = true
		c.fcp = event.Float64(e.StartTime)
		o := obs
		c.mu.Unlock()
		if o != nil {
			o.Disconnect()
		}
	})
	c.mu.Lock()
	fired := done
	c.mu.Unlock()
	if fired && obs != nil {
		obs.Disconnect()
	}
}

func (c *Collector) observeINP() {
	c.observe("event", true, func(e host.Entry) {
		if e.ProcessingStart == 0 || e.ProcessingEnd == 0 {
			return
		}
		c.mu.Lock()
		c.interactions = append(c.interactions, e.ProcessingEnd-e.StartTime)
		c.mu.Unlock()
	})
}

// finalize disconnects all observers and delivers the snapshot. Runs at
// most once per collector, whichever trigger fires first.
func (c *Collector) finalize() {
	defer observability.RecoverPanic(c.logger, "vitals finalize")

	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return
	}
	c.finalized = true
	report := c.snapshotLocked()
	c.mu.Unlock()

	c.teardown()

	if report.IsEmpty() {
		return
	}
	if c.metrics != nil {
		c.metrics.VitalsReportsTotal.Inc()
		for _, m := range report.Metrics() {
			c.metrics.VitalsMetricsReported.WithLabelValues(m.Name).Inc()
		}
	}
	if c.onReport != nil {
		c.onReport(report)
	}
}

// snapshotLocked computes terminal values for the accumulating metrics.
// Caller holds c.mu.
func (c *Collector) snapshotLocked() event.CoreWebVitals {
	report := event.CoreWebVitals{
		LCP:  c.lcp,
		FID:  c.fid,
		TTFB: c.ttfb,
		FCP:  c.fcp,
	}
	if c.clsSeen {
		report.CLS = event.Float64(c.cls)
	}
	if inp, ok := finalizeINP(c.interactions); ok {
		report.INP = event.Float64(inp)
	}
	return report
}

// finalizeINP reduces recorded interaction latencies to a single value: the
// maximum for small samples, the 98th percentile once more than ten
// interactions were seen. Zero interactions yield no INP at all.
func finalizeINP(interactions []float64) (float64, bool) {
	n := len(interactions)
	if n == 0 {
		return 0, false
	}

	sorted := make([]float64, n)
	copy(sorted, interactions)
	sort.Float64s(sorted)

	if n <= inpPercentileThreshold {
		return sorted[n-1], true
	}

	idx := int(math.Ceil(0.98*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx], true
}

// Stop removes all listeners, timers and observers without reporting. Safe
// to call multiple times, before or after finalization.
func (c *Collector) Stop() {
	c.mu.Lock()
	c.finalized = true
	c.mu.Unlock()
	c.teardown()
}

func (c *Collector) teardown() {
	c.mu.Lock()
	observers := c.observers
	cancels := c.cancels
	timer := c.timer
	c.observers = nil
	c.cancels = nil
	c.timer = nil
	c.mu.Unlock()

	for _, obs := range observers {
		obs.Disconnect()
	}
	for _, cancel := range cancels {
		cancel()
	}
	if timer != nil {
		timer.Stop()
	}
}

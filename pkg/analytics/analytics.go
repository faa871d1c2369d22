package analytics

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/quietmetrics/beacon/pkg/config"
	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/host"
	"github.com/quietmetrics/beacon/pkg/observability"
	"github.com/quietmetrics/beacon/pkg/provider"
	"github.com/quietmetrics/beacon/pkg/sanitize"
	"github.com/quietmetrics/beacon/pkg/scrolldepth"
	"github.com/quietmetrics/beacon/pkg/vitals"
)

// Analytics composes the provider adapter, collectors and sanitizer behind
// the public event API. Safe for use from multiple goroutines.
type Analytics struct {
	host    host.Host
	logger  *observability.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	mu          sync.Mutex
	initialized bool
	cfg         *config.Config
	provider    provider.Provider
	sanitizer   *sanitize.Sanitizer
	ruleWatcher *sanitize.RuleWatcher
	vitals      *vitals.Collector
	scroll      *scrolldepth.Tracker
}

// Option configures an Analytics instance.
type Option func(*Analytics)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *observability.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

// WithMetrics records pipeline activity on the given metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = metrics }
}

// WithClock overrides the clock used for timestamps, throttling and the
// vitals fallback timer.
func WithClock(clock clockwork.Clock) Option {
	return func(a *Analytics) { a.clock = clock }
}

// New creates an uninitialized Analytics instance bound to the given host.
// Call Init with a loaded configuration to activate it.
func New(h host.Host, opts ...Option) *Analytics {
	a := &Analytics{
		host:   h,
		logger: observability.NewNopLogger(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("analytics")
	return a
}

// Init activates the pipeline from the given configuration. A nil config
// leaves the pipeline inert without an error. Requesting a recognized but
// unimplemented provider is the one loud failure: silently tracking to the
// wrong destination is worse than a visible startup error.
//
// A second Init while initialized keeps the first configuration unchanged
// and logs a single warning.
func (a *Analytics) Init(cfg *config.Config) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		a.logger.Warn("already initialized, ignoring new configuration")
		return nil
	}
	if cfg == nil {
		a.mu.Unlock()
		a.logger.Debug("no configuration, pipeline stays inert")
		return nil
	}

	dev := cfg.IsDevelopment()
	p, err := provider.Resolve(cfg.Provider, a.host.DOM, a.host.Navigator,
		provider.WithLogger(a.logger),
		provider.WithMetrics(a.metrics),
		provider.WithDevMode(dev),
	)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("resolving provider: %w", err)
	}

	a.sanitizer, a.ruleWatcher = a.buildSanitizer(cfg, dev)

	p.Init(cfg)
	a.provider = p
	a.cfg = cfg
	a.initialized = true

	var v *vitals.Collector
	var s *scrolldepth.Tracker
	if cfg.TrackWebVitals {
		v = vitals.NewCollector(a.host.Performance, a.host.Lifecycle, a.TrackWebVitals,
			vitals.WithLogger(a.logger),
			vitals.WithMetrics(a.metrics),
			vitals.WithClock(a.clock),
		)
		a.vitals = v
	}
	if cfg.TrackScrollDepth {
		s = scrolldepth.NewTracker(a.host.Viewport, a.trackScrollMilestone,
			scrolldepth.WithLogger(a.logger),
			scrolldepth.WithMetrics(a.metrics),
			scrolldepth.WithClock(a.clock),
		)
		a.scroll = s
	}
	a.mu.Unlock()

	// Started outside the lock: both collectors evaluate immediately and
	// may deliver through TrackEvent.
	if v != nil {
		v.Start()
	}
	if s != nil {
		s.Start()
	}

	a.logger.WithFields(map[string]any{
		"provider": cfg.Provider,
		"domain":   cfg.Domain,
	}).Info("analytics initialized")
	return nil
}

// buildSanitizer assembles the PII policy, preferring a configured rule
// file over the built-in defaults. A broken rule file keeps the defaults.
func (a *Analytics) buildSanitizer(cfg *config.Config, dev bool) (*sanitize.Sanitizer, *sanitize.RuleWatcher) {
	opts := []sanitize.Option{
		sanitize.WithLogger(a.logger),
		sanitize.WithMetrics(a.metrics),
		sanitize.WithDevMode(dev),
	}

	if cfg.SanitizerRulesPath == "" {
		return sanitize.New(sanitize.DefaultRules(), opts...), nil
	}

	rules, err := sanitize.LoadRulesFile(cfg.SanitizerRulesPath)
	if err != nil {
		a.logger.WithError(err).Warn("sanitizer rule file unusable, using defaults")
		return sanitize.New(sanitize.DefaultRules(), opts...), nil
	}

	s := sanitize.New(rules, opts...)
	watcher, err := sanitize.WatchRules(cfg.SanitizerRulesPath, s, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("sanitizer rule watching unavailable")
		return s, nil
	}
	return s, watcher
}

// TrackEvent sanitizes and delegates one event to the active provider.
// A no-op, not an error, when the pipeline is not initialized.
func (a *Analytics) TrackEvent(e event.Event) {
	a.mu.Lock()
	p := a.provider
	sanitizer := a.sanitizer
	active := a.initialized
	a.mu.Unlock()

	if !active || p == nil {
		if a.metrics != nil {
			a.metrics.EventsDroppedTotal.WithLabelValues("disabled").Inc()
		}
		return
	}

	e.Properties = sanitizer.Sanitize(e.Properties)
	e = e.WithDefaultTimestamp(a.clock.Now())

	if a.metrics != nil {
		a.metrics.EventsTotal.WithLabelValues(string(e.Name), "delegated").Inc()
	}
	p.TrackEvent(e)
}

// TrackPageView records a page view, optionally for an explicit URL (used
// on client-side route changes).
func (a *Analytics) TrackPageView(u string) {
	a.mu.Lock()
	p := a.provider
	active := a.initialized && a.cfg != nil && a.cfg.TrackPageviews
	a.mu.Unlock()

	if !active || p == nil {
		return
	}
	if a.metrics != nil {
		a.metrics.EventsTotal.WithLabelValues(string(event.NamePageView), "delegated").Inc()
	}
	p.TrackPageView(u)
}

// TrackWebVitals delegates a vitals snapshot to the active provider.
func (a *Analytics) TrackWebVitals(v event.CoreWebVitals) {
	a.mu.Lock()
	p := a.provider
	active := a.initialized
	a.mu.Unlock()

	if !active || p == nil {
		return
	}
	p.TrackWebVitals(v)
}

// TrackCTAClick records a click on a call-to-action element.
// Convenience events are built unstamped so TrackEvent assigns the
// timestamp from the configured clock.
func (a *Analytics) TrackCTAClick(label, location string) {
	a.TrackEvent(event.Event{Name: event.NameCTAClick, Properties: event.Properties{
		"label":    label,
		"location": location,
	}})
}

// TrackDownload records a download link being followed.
func (a *Analytics) TrackDownload(platform, location string) {
	a.TrackEvent(event.Event{Name: event.NameDownload, Properties: event.Properties{
		"platform": platform,
		"location": location,
	}})
}

// TrackNavigation records an internal navigation.
func (a *Analytics) TrackNavigation(target, source string) {
	a.TrackEvent(event.Event{Name: event.NameNavigation, Properties: event.Properties{
		"target": target,
		"source": source,
	}})
}

func (a *Analytics) trackScrollMilestone(milestone int) {
	a.TrackEvent(event.Event{Name: event.NameScrollDepth, Properties: event.Properties{
		"depth": milestone,
	}})
}

// IsEnabled reports whether events are actually being delivered: the
// pipeline is initialized and the provider reports ready.
func (a *Analytics) IsEnabled() bool {
	a.mu.Lock()
	p := a.provider
	active := a.initialized
	a.mu.Unlock()
	return active && p != nil && p.IsEnabled()
}

// GetConfig returns the live configuration, or nil when uninitialized.
func (a *Analytics) GetConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Disable tears down the provider and collectors best-effort and clears all
// configuration state. Idempotent and safe to call when never initialized.
func (a *Analytics) Disable() {
	a.mu.Lock()
	p := a.provider
	v := a.vitals
	s := a.scroll
	w := a.ruleWatcher
	a.provider = nil
	a.vitals = nil
	a.scroll = nil
	a.ruleWatcher = nil
	a.cfg = nil
	a.initialized = false
	a.mu.Unlock()

	if v != nil {
		func() {
			defer observability.RecoverPanic(a.logger, "vitals teardown")
			v.Stop()
		}()
	}
	if s != nil {
		func() {
			defer observability.RecoverPanic(a.logger, "scroll teardown")
			s.Stop()
		}()
	}
	if p != nil {
		func() {
			defer observability.RecoverPanic(a.logger, "provider teardown")
			p.Disable()
		}()
	}
	if w != nil {
		func() {
			defer observability.RecoverPanic(a.logger, "rule watcher teardown")
			_ = w.Close()
		}()
	}
}

package provider

import (
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/quietmetrics/beacon/pkg/config"
	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/host"
	"github.com/quietmetrics/beacon/pkg/observability"
)

const (
	// SinkName is the global function the Plausible script installs.
	SinkName = "plausible"
	// DefaultScriptURL is used when the configuration carries no override.
	DefaultScriptURL = "https://plausible.io/js/script.js"
)

// allowedScriptHosts are known analytics-script hosts accepted even when
// the script path has no .js extension.
var allowedScriptHosts = map[string]bool{
	"plausible.io": true,
}

// Plausible injects the Plausible tracking script and forwards events to
// its global sink once the script has loaded.
type Plausible struct {
	dom     host.DOM
	nav     host.Navigator
	logger  *observability.Logger
	metrics *observability.Metrics
	dev     bool

	mu     sync.Mutex
	script host.ScriptHandle
	loaded bool
}

// NewPlausible creates an uninitialized adapter. Call Init to inject the
// script.
func NewPlausible(dom host.DOM, nav host.Navigator, opts ...Option) *Plausible {
	o := buildOptions(opts)
	return &Plausible{
		dom:     dom,
		nav:     nav,
		logger:  o.logger.WithComponent("plausible"),
		metrics: o.metrics,
		dev:     o.dev,
	}
}

// Init validates the script URL and injects a single async script element
// carrying the site domain. Aborted entirely when Do Not Track is honored.
// A second call while a script is present is a no-op.
func (p *Plausible) Init(cfg *config.Config) {
	if cfg == nil {
		return
	}

	p.mu.Lock()
	if p.script != nil {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if cfg.RespectDNT && p.nav.DoNotTrack() {
		p.logger.Debug("do-not-track enabled, skipping initialization")
		p.initOutcome("dnt")
		return
	}

	src := cfg.ScriptURL
	if src == "" {
		src = DefaultScriptURL
	}
	if !validScriptURL(src) {
		if p.dev {
			p.logger.WithField("script_url", src).
				Warn("invalid analytics script URL, provider disabled")
		}
		p.initOutcome("invalid_script_url")
		return
	}

	if p.dom.HasScript(src) {
		p.initOutcome("already_present")
		return
	}

	handle, err := p.dom.InjectScript(host.Script{
		Src:   src,
		Async: true,
		Attrs: map[string]string{"data-domain": cfg.Domain},
	})
	if err != nil {
		p.logger.WithError(err).Warn("script injection failed, provider disabled")
		p.initOutcome("inject_error")
		return
	}

	p.mu.Lock()
	p.script = handle
	p.mu.Unlock()

	handle.OnLoad(func() {
		p.mu.Lock()
		p.loaded = true
		p.mu.Unlock()
		p.logger.Debug("analytics script loaded")
		p.initOutcome("loaded")
	})
	handle.OnError(func() {
		p.logger.Warn("analytics script failed to load")
		p.initOutcome("load_error")
	})
}

func (p *Plausible) initOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.ProviderInitTotal.WithLabelValues(string(KindPlausible), outcome).Inc()
	}
}

// validScriptURL accepts absolute HTTPS URLs that either end in a script
// extension or point at a known analytics host.
func validScriptURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" || u.Host == "" {
		return false
	}
	return strings.HasSuffix(u.Path, ".js") || allowedScriptHosts[u.Hostname()]
}

// IsEnabled reports whether the injected script has dispatched its load
// event. Never optimistically true right after injection.
func (p *Plausible) IsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.script != nil && p.loaded
}

// TrackEvent forwards the event to the global sink.
func (p *Plausible) TrackEvent(e event.Event) {
	p.send(string(e.Name), map[string]any(e.Properties))
}

// TrackPageView records a page view, optionally for an explicit URL.
func (p *Plausible) TrackPageView(u string) {
	var props map[string]any
	if u != "" {
		props = map[string]any{"u": u}
	}
	p.send(string(event.NamePageView), props)
}

// TrackWebVitals emits one event per populated metric. Time-based metrics
// are rounded to whole milliseconds; CLS keeps three decimal places.
func (p *Plausible) TrackWebVitals(v event.CoreWebVitals) {
	for _, m := range v.Metrics() {
		value := math.Round(m.Value)
		if m.Name == "CLS" {
			value = math.Round(m.Value*1000) / 1000
		}
		p.send(string(event.NameWebVitals), map[string]any{
			"metric": m.Name,
			"value":  value,
		})
	}
}

// send delivers one call to the global sink. Silently a no-op when the
// adapter is not enabled or the sink is absent. A panicking sink is
// contained here and never reaches the caller.
func (p *Plausible) send(name string, props map[string]any) {
	if !p.IsEnabled() {
		return
	}
	sink := p.dom.GlobalSink(SinkName)
	if sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("panic", r).
				WithField("event", name).
				Warn("provider sink call failed")
			if p.metrics != nil {
				p.metrics.ProviderSinkErrors.WithLabelValues(string(KindPlausible)).Inc()
			}
		}
	}()
	sink(name, props)
}

// Disable removes the injected script element and the global sink
// reference, and resets the load flag. Idempotent.
func (p *Plausible) Disable() {
	p.mu.Lock()
	script := p.script
	p.script = nil
	p.loaded = false
	p.mu.Unlock()

	if script != nil {
		script.Remove()
	}
	p.dom.RemoveGlobalSink(SinkName)
}

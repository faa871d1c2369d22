package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quietmetrics/beacon/pkg/config"
	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/host"
	"github.com/quietmetrics/beacon/pkg/observability"
)

// Kind names an analytics back-end.
type Kind string

const (
	KindPlausible Kind = "plausible"
	KindFathom    Kind = "fathom"
	KindUmami     Kind = "umami"
	KindSimple    Kind = "simple"
	KindCustom    Kind = "custom"
)

// ErrNotImplemented marks a recognized provider kind without an adapter.
var ErrNotImplemented = errors.New("provider not implemented")

// Provider is the capability contract every back-end adapter satisfies.
// All methods are safe to call regardless of initialization state; an
// adapter that failed to initialize simply drops events.
type Provider interface {
	// Init prepares the adapter from the given configuration. Validation
	// failures leave the adapter disabled without an error: analytics must
	// never break the page.
	Init(cfg *config.Config)
	// TrackEvent forwards one sanitized event.
	TrackEvent(e event.Event)
	// TrackPageView records a page view for the given URL.
	TrackPageView(u string)
	// TrackWebVitals fans out each populated metric as its own event.
	TrackWebVitals(v event.CoreWebVitals)
	// IsEnabled reports whether the adapter is ready to deliver events.
	IsEnabled() bool
	// Disable tears the adapter down. Idempotent.
	Disable()
}

type options struct {
	logger  *observability.Logger
	metrics *observability.Metrics
	dev     bool
}

// Option configures an adapter.
type Option func(*options)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *observability.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records adapter activity on the pipeline metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithDevMode enables development-mode warnings.
func WithDevMode(dev bool) Option {
	return func(o *options) { o.dev = dev }
}

func buildOptions(opts []Option) options {
	o := options{logger: observability.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolve maps a provider name to a concrete adapter. Recognized but
// unimplemented kinds return ErrNotImplemented. An unrecognized name falls
// back to plausible with a development-mode warning, matching the most
// common deployment.
func Resolve(name string, dom host.DOM, nav host.Navigator, opts ...Option) (Provider, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindPlausible, "":
		return NewPlausible(dom, nav, opts...), nil
	case KindFathom, KindUmami, KindSimple, KindCustom:
		return nil, fmt.Errorf("provider %q: %w", name, ErrNotImplemented)
	default:
		o := buildOptions(opts)
		if o.dev {
			o.logger.WithComponent("provider").
				Warnf("unknown provider %q, falling back to plausible", name)
		}
		return NewPlausible(dom, nav, opts...), nil
	}
}

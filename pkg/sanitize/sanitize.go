package sanitize

import (
	"reflect"
	"strings"
	"sync"

	"github.com/quietmetrics/beacon/pkg/event"
	"github.com/quietmetrics/beacon/pkg/observability"
)

// Sanitizer applies the PII detection policy to event properties.
type Sanitizer struct {
	mu      sync.RWMutex
	rules   *Rules
	logger  *observability.Logger
	metrics *observability.Metrics
	dev     bool
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithLogger sets the logger used for development-mode warnings.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Sanitizer) { s.logger = logger }
}

// WithMetrics records dropped properties on the pipeline metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Sanitizer) { s.metrics = metrics }
}

// WithDevMode enables the development-only warning for dropped pairs.
func WithDevMode(dev bool) Option {
	return func(s *Sanitizer) { s.dev = dev }
}

// New creates a sanitizer. A nil rules argument selects the built-in
// policy.
func New(rules *Rules, opts ...Option) *Sanitizer {
	if rules == nil {
		rules = DefaultRules()
	}
	s := &Sanitizer{
		rules:  rules,
		logger: observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("sanitizer")
	return s
}

// ReplaceRules swaps the detection policy. Used by the rule watcher; call
// sites are unaffected.
func (s *Sanitizer) ReplaceRules(rules *Rules) {
	if rules == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// Rules returns the active detection policy.
func (s *Sanitizer) Rules() *Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Sanitize returns a copy of props with PII pairs removed. The input map is
// never mutated. Sanitization is idempotent: sanitizing an already
// sanitized map returns an equal map.
//
// A pair is dropped when (a) the lower-cased key contains a denylisted
// fragment, (b) the value is a nested structure (properties are a flat bag
// of strings, numbers and booleans), or (c) the value is a string matching
// the email pattern. Non-string scalars (numbers, booleans, nil) are never
// pattern-matched.
func (s *Sanitizer) Sanitize(props event.Properties) event.Properties {
	if props == nil {
		return nil
	}

	rules := s.Rules()

	out := make(event.Properties, len(props))
	var droppedKeys []string
	for key, value := range props {
		if rule, drop := rules.match(key, value); drop {
			droppedKeys = append(droppedKeys, key)
			if s.metrics != nil {
				s.metrics.SanitizedPropsTotal.WithLabelValues(rule).Inc()
			}
			continue
		}
		out[key] = value
	}

	// Warn in development only, naming keys but never values.
	if len(droppedKeys) > 0 && s.dev {
		s.logger.WithField("keys", droppedKeys).
			Warn("removed potential PII from event properties")
	}

	return out
}

// match reports whether a pair violates the policy and which rule fired.
func (r *Rules) match(key string, value any) (rule string, drop bool) {
	lowered := strings.ToLower(key)
	for _, fragment := range r.KeyFragments {
		if strings.Contains(lowered, fragment) {
			return "key", true
		}
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return "nested", true
	}
	if str, ok := value.(string); ok && r.EmailPattern != nil && r.EmailPattern.MatchString(str) {
		return "value", true
	}
	return "", false
}

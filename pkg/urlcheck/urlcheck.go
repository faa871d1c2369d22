package urlcheck

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/quietmetrics/beacon/pkg/observability"
)

// Reason is a structured, non-sensitive rejection code.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonEmpty            Reason = "empty"
	ReasonControlChars     Reason = "control_chars"
	ReasonProtocolRelative Reason = "protocol_relative"
	ReasonSchemeDenied     Reason = "scheme_denied"
	ReasonBadProtocol      Reason = "bad_protocol"
	ReasonCrossOrigin      Reason = "cross_origin"
	ReasonUnparseable      Reason = "unparseable"
)

// Result is the outcome of validating one URL.
type Result struct {
	Safe bool
	// Reason is set when Safe is false.
	Reason Reason
	// Resolved is the absolute URL the input resolves to, set when Safe.
	Resolved *url.URL
}

// deniedSchemes are rejected case-insensitively, both literally and after a
// best-effort percent decode.
var deniedSchemes = []string{"javascript", "data", "vbscript", "file", "about", "blob"}

// absoluteSchemePrefix recognizes an explicit scheme:// prefix.
var absoluteSchemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

const cacheSize = 256

// Validator validates URLs against a fixed page origin. Validation is pure,
// so results are memoized in a small LRU cache keyed by input and mode.
type Validator struct {
	origin  *url.URL
	cache   *lru.Cache[string, Result]
	metrics *observability.Metrics
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMetrics counts blocked URLs on the pipeline metrics.
func WithMetrics(metrics *observability.Metrics) ValidatorOption {
	return func(v *Validator) { v.metrics = metrics }
}

// NewValidator creates a validator for the given page origin.
func NewValidator(origin *url.URL, opts ...ValidatorOption) *Validator {
	cache, _ := lru.New[string, Result](cacheSize)
	v := &Validator{origin: origin, cache: cache}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsSafe reports whether raw is safe to render as a same-origin link.
func (v *Validator) IsSafe(raw string) bool {
	return v.Check(raw, false).Safe
}

// IsSafeExternal reports whether raw is safe to render as an outbound link.
// External http(s) URLs are accepted. Never use this for navigation.
func (v *Validator) IsSafeExternal(raw string) bool {
	return v.Check(raw, true).Safe
}

// Check validates raw and returns the structured result.
func (v *Validator) Check(raw string, allowExternal bool) Result {
	key := "i|" + raw
	if allowExternal {
		key = "e|" + raw
	}
	if cached, ok := v.cache.Get(key); ok {
		return cached
	}

	result := v.check(raw, allowExternal)
	if !result.Safe && v.metrics != nil {
		v.metrics.UnsafeURLsBlockedTotal.WithLabelValues(string(result.Reason)).Inc()
	}
	v.cache.Add(key, result)
	return result
}

func (v *Validator) check(raw string, allowExternal bool) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Reason: ReasonEmpty}
	}

	// Raw control characters anywhere in the input are an immediate
	// rejection; browsers strip them, which attackers exploit to smuggle
	// schemes past naive filters.
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return Result{Reason: ReasonControlChars}
		}
	}

	// Protocol-relative (//host) and backslash-normalized (\\host, /\host)
	// prefixes escape the origin without naming a scheme.
	if len(trimmed) >= 2 && isSlash(trimmed[0]) && isSlash(trimmed[1]) {
		return Result{Reason: ReasonProtocolRelative}
	}

	if hasDeniedScheme(trimmed) {
		return Result{Reason: ReasonSchemeDenied}
	}

	if absoluteSchemePrefix.MatchString(trimmed) {
		resolved, err := url.Parse(trimmed)
		if err != nil {
			return Result{Reason: ReasonUnparseable}
		}
		if !isHTTP(resolved) {
			return Result{Reason: ReasonBadProtocol}
		}
		if !allowExternal && !v.sameOrigin(resolved) {
			return Result{Reason: ReasonCrossOrigin}
		}
		return Result{Safe: true, Resolved: resolved}
	}

	// Relative input: resolve against the page origin and require the
	// result to stay http(s) and same-origin.
	resolved, err := v.origin.Parse(trimmed)
	if err != nil {
		return Result{Reason: ReasonUnparseable}
	}
	if !isHTTP(resolved) {
		return Result{Reason: ReasonBadProtocol}
	}
	if !v.sameOrigin(resolved) {
		return Result{Reason: ReasonCrossOrigin}
	}
	return Result{Safe: true, Resolved: resolved}
}

// hasDeniedScheme checks the whitespace-stripped input's scheme against the
// denylist, literally and again after a best-effort percent decode.
func hasDeniedScheme(input string) bool {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)

	if matchesDeniedScheme(stripped) {
		return true
	}

	decoded, err := url.QueryUnescape(stripped)
	if err != nil {
		// Undecodable input is checked as-is; the literal pass above
		// already covered it.
		return false
	}
	return matchesDeniedScheme(decoded)
}

func matchesDeniedScheme(input string) bool {
	lowered := strings.ToLower(input)
	for _, scheme := range deniedSchemes {
		if strings.HasPrefix(lowered, scheme+":") {
			return true
		}
	}
	return false
}

func isSlash(c byte) bool {
	return c == '/' || c == '\\'
}

func isHTTP(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

func (v *Validator) sameOrigin(u *url.URL) bool {
	return u.Scheme == v.origin.Scheme && u.Host == v.origin.Host
}

package host

import "net/url"

// SinkFunc is the global callable installed by a provider's loaded script,
// e.g. plausible(eventName, props).
type SinkFunc func(eventName string, props map[string]any)

// Script describes a script element to inject.
type Script struct {
	Src   string
	Async bool
	// Attrs are additional attributes, e.g. data-domain.
	Attrs map[string]string
}

// ScriptHandle controls an injected script element.
type ScriptHandle interface {
	// OnLoad registers a callback invoked when the script finishes
	// loading. Registration after the load event fires the callback
	// immediately.
	OnLoad(fn func())
	// OnError registers a callback invoked if the script fails to load.
	OnError(fn func())
	// Remove removes the script element. Idempotent.
	Remove()
}

// DOM exposes script injection and the provider's global sink.
type DOM interface {
	// InjectScript adds a script element to the document.
	InjectScript(script Script) (ScriptHandle, error)
	// HasScript reports whether a script with the given src is already
	// present.
	HasScript(src string) bool
	// GlobalSink returns the named global sink function, or nil if the
	// provider script has not installed it.
	GlobalSink(name string) SinkFunc
	// RemoveGlobalSink deletes the named global sink reference.
	RemoveGlobalSink(name string)
}

// Viewport exposes scroll geometry and scroll event delivery.
type Viewport interface {
	ScrollTop() float64
	ScrollHeight() float64
	ClientHeight() float64
	// OnScroll registers a passive scroll listener and returns a cancel
	// function that removes it. Cancel is idempotent.
	OnScroll(fn func()) (cancel func())
}

// Entry is a single performance timeline entry. Only the fields relevant
// to the observed entry type are populated.
type Entry struct {
	Type string
	Name string

	StartTime       float64
	RenderTime      float64
	LoadTime        float64
	ProcessingStart float64
	ProcessingEnd   float64
	ResponseStart   float64

	// Value and HadRecentInput apply to layout-shift entries.
	Value          float64
	HadRecentInput bool
}

// Observer is a handle on an active performance observation.
type Observer interface {
	// Disconnect stops entry delivery. Idempotent.
	Disconnect()
}

// Performance exposes the host's performance observation capability.
type Performance interface {
	// Observe starts observing entries of the given type. When buffered
	// is true, entries recorded before the call are replayed. Returns an
	// error if the entry type is unsupported by the host.
	Observe(entryType string, buffered bool, fn func(Entry)) (Observer, error)
	// NavigationEntry returns the navigation timing entry, if one exists.
	NavigationEntry() (Entry, bool)
}

// Lifecycle exposes page visibility and unload signals.
type Lifecycle interface {
	// OnVisibilityHidden registers a callback for visibilitychange to
	// hidden. Returns an idempotent cancel function.
	OnVisibilityHidden(fn func()) (cancel func())
	// OnPageHide registers a callback for pagehide. Returns an idempotent
	// cancel function.
	OnPageHide(fn func()) (cancel func())
}

// Navigator exposes the page's location and the Do-Not-Track signal.
type Navigator interface {
	// Origin returns the page's origin (scheme + host).
	Origin() *url.URL
	// Location returns the current top-level location.
	Location() *url.URL
	// Navigate assigns the top-level location.
	Navigate(u string)
	// DoNotTrack reports whether the user has enabled Do Not Track.
	DoNotTrack() bool
}

// Host bundles the full capability set for facade wiring. Individual
// components accept only the interfaces they use.
type Host struct {
	DOM         DOM
	Viewport    Viewport
	Performance Performance
	Lifecycle   Lifecycle
	Navigator   Navigator
}

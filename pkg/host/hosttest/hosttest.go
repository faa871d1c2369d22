// Package hosttest provides a scriptable in-memory host implementation for
// testing the telemetry pipeline without a browser.
//
// The fake records injected scripts, sink calls and navigations, and lets
// tests fire load events, performance entries, scroll events and lifecycle
// signals on demand.
package hosttest

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/quietmetrics/beacon/pkg/host"
)

// Fake implements every host capability interface.
type Fake struct {
	mu sync.Mutex

	scripts     []*FakeScript
	sinks       map[string]host.SinkFunc
	sinkCalls   []SinkCall
	failInject  bool
	removedSink []string

	scrollTop    float64
	scrollHeight float64
	clientHeight float64
	scrollSubs   map[int]func()
	nextSubID    int

	observers       map[string][]*fakeObserver
	unsupported     map[string]bool
	buffered        map[string][]host.Entry
	navigationEntry *host.Entry

	hiddenSubs   map[int]func()
	pagehideSubs map[int]func()

	origin      *url.URL
	location    *url.URL
	navigations []string
	dnt         bool
}

// SinkCall records one invocation of a global sink function.
type SinkCall struct {
	Sink  string
	Event string
	Props map[string]any
}

// New creates a fake host rooted at the given origin, e.g.
// "https://example.com".
func New(origin string) *Fake {
	o, err := url.Parse(origin)
	if err != nil {
		panic(fmt.Sprintf("hosttest: bad origin %q: %v", origin, err))
	}
	loc := *o
	loc.Path = "/"
	return &Fake{
		sinks:        make(map[string]host.SinkFunc),
		scrollSubs:   make(map[int]func()),
		observers:    make(map[string][]*fakeObserver),
		unsupported:  make(map[string]bool),
		buffered:     make(map[string][]host.Entry),
		hiddenSubs:   make(map[int]func()),
		pagehideSubs: make(map[int]func()),
		origin:       o,
		location:     &loc,
		scrollHeight: 1000,
		clientHeight: 1000,
	}
}

// Host bundles the fake into a host.Host.
func (f *Fake) Host() host.Host {
	return host.Host{
		DOM:         f,
		Viewport:    f,
		Performance: f,
		Lifecycle:   f,
		Navigator:   f,
	}
}

// --- DOM ---

// FakeScript is an injected script element.
type FakeScript struct {
	fake *Fake

	Script  host.Script
	removed bool
	loaded  bool
	failed  bool
	onLoad  []func()
	onError []func()
}

// FailInjection makes subsequent InjectScript calls return an error.
func (f *Fake) FailInjection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failInject = true
}

// InjectScript implements host.DOM.
func (f *Fake) InjectScript(script host.Script) (host.ScriptHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInject {
		return nil, fmt.Errorf("hosttest: script injection disabled")
	}
	s := &FakeScript{fake: f, Script: script}
	f.scripts = append(f.scripts, s)
	return s, nil
}

// HasScript implements host.DOM.
func (f *Fake) HasScript(src string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scripts {
		if !s.removed && s.Script.Src == src {
			return true
		}
	}
	return false
}

// GlobalSink implements host.DOM.
func (f *Fake) GlobalSink(name string) host.SinkFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[name]
}

// RemoveGlobalSink implements host.DOM.
func (f *Fake) RemoveGlobalSink(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sinks, name)
	f.removedSink = append(f.removedSink, name)
}

// InstallSink installs a recording sink under the given global name, as the
// loaded provider script would.
func (f *Fake) InstallSink(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[name] = func(eventName string, props map[string]any) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sinkCalls = append(f.sinkCalls, SinkCall{Sink: name, Event: eventName, Props: props})
	}
}

// InstallSinkFunc installs an arbitrary sink under the given global name.
func (f *Fake) InstallSinkFunc(name string, fn host.SinkFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[name] = fn
}

// SinkCalls returns a copy of all recorded sink invocations.
func (f *Fake) SinkCalls() []SinkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SinkCall, len(f.sinkCalls))
	copy(out, f.sinkCalls)
	return out
}

// Scripts returns the scripts injected so far, including removed ones.
func (f *Fake) Scripts() []*FakeScript {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeScript, len(f.scripts))
	copy(out, f.scripts)
	return out
}

// OnLoad implements host.ScriptHandle.
func (s *FakeScript) OnLoad(fn func()) {
	s.fake.mu.Lock()
	loaded := s.loaded
	if !loaded {
		s.onLoad = append(s.onLoad, fn)
	}
	s.fake.mu.Unlock()
	if loaded {
		fn()
	}
}

// OnError implements host.ScriptHandle.
func (s *FakeScript) OnError(fn func()) {
	s.fake.mu.Lock()
	failed := s.failed
	if !failed {
		s.onError = append(s.onError, fn)
	}
	s.fake.mu.Unlock()
	if failed {
		fn()
	}
}

// Remove implements host.ScriptHandle.
func (s *FakeScript) Remove() {
	s.fake.mu.Lock()
	defer s.fake.mu.Unlock()
	s.removed = true
}

// Removed reports whether the script element was removed.
func (s *FakeScript) Removed() bool {
	s.fake.mu.Lock()
	defer s.fake.mu.Unlock()
	return s.removed
}

// FireLoad simulates the script's load event, optionally installing the
// named global sink first.
func (s *FakeScript) FireLoad(installSink string) {
	if installSink != "" {
		s.fake.InstallSink(installSink)
	}
	s.fake.mu.Lock()
	s.loaded = true
	fns := s.onLoad
	s.onLoad = nil
	s.fake.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// FireError simulates a script load failure.
func (s *FakeScript) FireError() {
	s.fake.mu.Lock()
	s.failed = true
	fns := s.onError
	s.onError = nil
	s.fake.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// --- Viewport ---

// SetGeometry sets the scroll geometry.
func (f *Fake) SetGeometry(scrollTop, scrollHeight, clientHeight float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollTop = scrollTop
	f.scrollHeight = scrollHeight
	f.clientHeight = clientHeight
}

// SetScrollTop updates the scroll position without firing a scroll event.
func (f *Fake) SetScrollTop(top float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollTop = top
}

// ScrollTop implements host.Viewport.
func (f *Fake) ScrollTop() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrollTop
}

// ScrollHeight implements host.Viewport.
func (f *Fake) ScrollHeight() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrollHeight
}

// ClientHeight implements host.Viewport.
func (f *Fake) ClientHeight() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientHeight
}

// OnScroll implements host.Viewport.
func (f *Fake) OnScroll(fn func()) (cancel func()) {
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.scrollSubs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.scrollSubs, id)
	}
}

// ScrollListenerCount returns the number of active scroll listeners.
func (f *Fake) ScrollListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scrollSubs)
}

// Scroll sets the scroll position and fires a scroll event.
func (f *Fake) Scroll(top float64) {
	f.mu.Lock()
	f.scrollTop = top
	subs := make([]func(), 0, len(f.scrollSubs))
	for _, fn := range f.scrollSubs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// --- Performance ---

type fakeObserver struct {
	fake         *Fake
	entryType    string
	fn           func(host.Entry)
	disconnected bool
}

func (o *fakeObserver) Disconnect() {
	o.fake.mu.Lock()
	defer o.fake.mu.Unlock()
	o.disconnected = true
}

// SetUnsupported marks an entry type as unsupported; Observe will return an
// error for it.
func (f *Fake) SetUnsupported(entryType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsupported[entryType] = true
}

// Buffer records an entry delivered to future buffered observers of its
// type.
func (f *Fake) Buffer(e host.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffered[e.Type] = append(f.buffered[e.Type], e)
}

// Observe implements host.Performance.
func (f *Fake) Observe(entryType string, buffered bool, fn func(host.Entry)) (host.Observer, error) {
	f.mu.Lock()
	if f.unsupported[entryType] {
		f.mu.Unlock()
		return nil, fmt.Errorf("hosttest: entry type %q unsupported", entryType)
	}
	o := &fakeObserver{fake: f, entryType: entryType, fn: fn}
	f.observers[entryType] = append(f.observers[entryType], o)
	var replay []host.Entry
	if buffered {
		replay = append(replay, f.buffered[entryType]...)
	}
	f.mu.Unlock()
	for _, e := range replay {
		fn(e)
	}
	return o, nil
}

// Emit delivers an entry to all connected observers of its type.
func (f *Fake) Emit(e host.Entry) {
	f.mu.Lock()
	var targets []func(host.Entry)
	for _, o := range f.observers[e.Type] {
		if !o.disconnected {
			targets = append(targets, o.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range targets {
		fn(e)
	}
}

// ObserverCount returns the number of connected observers for a type.
func (f *Fake) ObserverCount(entryType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.observers[entryType] {
		if !o.disconnected {
			n++
		}
	}
	return n
}

// SetNavigationEntry sets the navigation timing entry.
func (f *Fake) SetNavigationEntry(e host.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.Type = "navigation"
	f.navigationEntry = &e
}

// NavigationEntry implements host.Performance.
func (f *Fake) NavigationEntry() (host.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navigationEntry == nil {
		return host.Entry{}, false
	}
	return *f.navigationEntry, true
}

// --- Lifecycle ---

// OnVisibilityHidden implements host.Lifecycle.
func (f *Fake) OnVisibilityHidden(fn func()) (cancel func()) {
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.hiddenSubs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.hiddenSubs, id)
	}
}

// OnPageHide implements host.Lifecycle.
func (f *Fake) OnPageHide(fn func()) (cancel func()) {
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.pagehideSubs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.pagehideSubs, id)
	}
}

// FireVisibilityHidden simulates visibilitychange to hidden.
func (f *Fake) FireVisibilityHidden() {
	f.fire(f.hiddenSubs)
}

// FirePageHide simulates the pagehide event.
func (f *Fake) FirePageHide() {
	f.fire(f.pagehideSubs)
}

func (f *Fake) fire(subs map[int]func()) {
	f.mu.Lock()
	fns := make([]func(), 0, len(subs))
	for _, fn := range subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// LifecycleListenerCount returns the number of active lifecycle listeners.
func (f *Fake) LifecycleListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hiddenSubs) + len(f.pagehideSubs)
}

// --- Navigator ---

// Origin implements host.Navigator.
func (f *Fake) Origin() *url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := *f.origin
	return &o
}

// Location implements host.Navigator.
func (f *Fake) Location() *url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := *f.location
	return &l
}

// Navigate implements host.Navigator.
func (f *Fake) Navigate(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, u)
	if parsed, err := f.location.Parse(u); err == nil {
		f.location = parsed
	}
}

// Navigations returns the URLs assigned to the location so far.
func (f *Fake) Navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.navigations))
	copy(out, f.navigations)
	return out
}

// SetDoNotTrack sets the Do-Not-Track signal.
func (f *Fake) SetDoNotTrack(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dnt = enabled
}

// DoNotTrack implements host.Navigator.
func (f *Fake) DoNotTrack() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dnt
}

package scrolldepth

import (
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quietmetrics/beacon/pkg/host"
	"github.com/quietmetrics/beacon/pkg/observability"
)

// ThrottleInterval is the minimum gap between scroll evaluations. The timer
// is trailing-edge: the position read at expiry is the one evaluated.
const ThrottleInterval = 250 * time.Millisecond

// Milestones is the fixed set of depth thresholds, ascending.
var Milestones = [4]int{25, 50, 75, 100}

// MilestoneFunc receives each milestone as it fires.
type MilestoneFunc func(milestone int)

// Tracker owns the append-only set of fired milestones for one page view.
type Tracker struct {
	viewport    host.Viewport
	clock       clockwork.Clock
	logger      *observability.Logger
	metrics     *observability.Metrics
	onMilestone MilestoneFunc

	mu       sync.Mutex
	attached bool
	cancel   func()
	timer    clockwork.Timer
	fired    map[int]bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *observability.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithMetrics records milestone counts on the pipeline metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(t *Tracker) { t.metrics = metrics }
}

// WithClock overrides the clock used for throttling.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) { t.clock = clock }
}

// NewTracker creates a tracker that delivers milestones to onMilestone.
// Call Start to attach it.
func NewTracker(viewport host.Viewport, onMilestone MilestoneFunc, opts ...Option) *Tracker {
	t := &Tracker{
		viewport:    viewport,
		clock:       clockwork.NewRealClock(),
		logger:      observability.NewNopLogger(),
		onMilestone: onMilestone,
		fired:       make(map[int]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithComponent("scrolldepth")
	return t
}

// Start attaches the scroll listener and evaluates the current position
// once, so a mid-page reload still fires the milestones already passed.
// Idempotent while attached.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.attached {
		t.mu.Unlock()
		return
	}
	t.attached = true
	t.mu.Unlock()

	cancel := t.viewport.OnScroll(t.onScroll)

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	t.evaluate()
}

// onScroll schedules a trailing-edge evaluation. Scroll events arriving
// while a timer is pending are coalesced into it.
func (t *Tracker) onScroll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.attached || t.timer != nil {
		return
	}
	t.timer = t.clock.AfterFunc(ThrottleInterval, func() {
		defer observability.RecoverPanic(t.logger, "scroll evaluation")
		t.mu.Lock()
		t.timer = nil
		attached := t.attached
		t.mu.Unlock()
		if attached {
			t.evaluate()
		}
	})
}

// evaluate reads the current scroll geometry and fires every milestone at
// or below the current depth that has not fired yet, ascending.
func (t *Tracker) evaluate() {
	pct := t.percentage()

	t.mu.Lock()
	var toFire []int
	for _, m := range Milestones {
		if !t.fired[m] && float64(m) <= pct {
			t.fired[m] = true
			toFire = append(toFire, m)
		}
	}
	done := len(t.fired) == len(Milestones)
	t.mu.Unlock()

	for _, m := range toFire {
		if t.metrics != nil {
			t.metrics.ScrollMilestonesTotal.WithLabelValues(strconv.Itoa(m)).Inc()
		}
		if t.onMilestone != nil {
			t.onMilestone(m)
		}
	}

	if done {
		t.detach()
	}
}

// percentage computes the scroll depth as a percentage of the scrollable
// overflow. A page with no overflow is 0, never a division by zero.
func (t *Tracker) percentage() float64 {
	scrollable := t.viewport.ScrollHeight() - t.viewport.ClientHeight()
	if scrollable <= 0 {
		return 0
	}
	return 100 * t.viewport.ScrollTop() / scrollable
}

// Reset clears the fired set and re-attaches the listener if the tracker
// detached itself, then evaluates the current position. Intended for
// client-side route changes that begin a new logical page view.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.fired = make(map[int]bool)
	attached := t.attached
	t.mu.Unlock()

	if attached {
		t.evaluate()
		return
	}
	t.Start()
}

// Stop detaches the listener and clears any pending evaluation. The fired
// set is retained. Idempotent.
func (t *Tracker) Stop() {
	t.detach()
}

func (t *Tracker) detach() {
	t.mu.Lock()
	t.attached = false
	cancel := t.cancel
	timer := t.timer
	t.cancel = nil
	t.timer = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if timer != nil {
		timer.Stop()
	}
}

// Package scrolldepth tracks how far down the page a visitor has scrolled
// and fires each depth milestone (25, 50, 75, 100 percent) exactly once, in
// ascending order. Evaluation is throttled to one pass per throttle window
// using the scroll position at window expiry. Once every milestone has
// fired the tracker detaches itself until reset.
package scrolldepth

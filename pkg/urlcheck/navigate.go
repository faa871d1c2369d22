package urlcheck

import (
	"github.com/quietmetrics/beacon/pkg/host"
	"github.com/quietmetrics/beacon/pkg/observability"
)

// Monitor receives reports about refused navigations. Implemented by the
// monitoring reporter.
type Monitor interface {
	// ReportUnsafeURL reports a blocked navigation. urlPresent is the only
	// detail carried about the offending input.
	ReportUnsafeURL(reason Reason, urlPresent bool)
}

// Navigation performs validated top-level navigation. It is intentionally
// stricter than the rendering validator: external URLs are never allowed,
// regardless of how the validator is configured.
type Navigation struct {
	validator *Validator
	navigator host.Navigator
	monitor   Monitor
	logger    *observability.Logger
}

// NewNavigation creates the navigation guard. monitor may be nil.
func NewNavigation(validator *Validator, navigator host.Navigator, monitor Monitor, logger *observability.Logger) *Navigation {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Navigation{
		validator: validator,
		navigator: navigator,
		monitor:   monitor,
		logger:    logger.WithComponent("urlcheck"),
	}
}

// SafeNavigate validates raw and assigns the top-level location only when
// validation passes. On rejection it reports the blocked attempt with the
// unsafe_url reason and returns false without touching the location.
func (n *Navigation) SafeNavigate(raw string) bool {
	result := n.validator.Check(raw, false)
	if !result.Safe {
		n.logger.WithField("reason", string(result.Reason)).
			Warn("blocked unsafe navigation")
		if n.monitor != nil {
			n.monitor.ReportUnsafeURL(result.Reason, raw != "")
		}
		return false
	}

	n.navigator.Navigate(result.Resolved.String())
	return true
}

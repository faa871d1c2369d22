// Package vitals collects Core Web Vitals (LCP, FID, CLS, TTFB, FCP, INP)
// from the host's performance observation capability and delivers a single
// best-effort snapshot when the page is hidden or unloaded, or after a
// fixed fallback delay.
//
// Each metric is observed independently: one unsupported entry type never
// prevents the others from being collected. The snapshot is whatever subset
// of the six metrics has been populated at finalize time; an empty snapshot
// is not reported.
package vitals

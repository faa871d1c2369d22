package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaultTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	stamped := Event{Name: NamePageView}.WithDefaultTimestamp(now)
	assert.Equal(t, now, stamped.Timestamp)

	explicit := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	kept := Event{Name: NamePageView, Timestamp: explicit}.WithDefaultTimestamp(now)
	assert.Equal(t, explicit, kept.Timestamp)
}

func TestNewStampsCreationTime(t *testing.T) {
	e := New(NameCTAClick, Properties{"label": "signup"})
	assert.Equal(t, NameCTAClick, e.Name)
	assert.Equal(t, "signup", e.Properties["label"])
	assert.False(t, e.Timestamp.IsZero())
}

func TestCoreWebVitalsIsEmpty(t *testing.T) {
	assert.True(t, CoreWebVitals{}.IsEmpty())
	assert.False(t, CoreWebVitals{CLS: Float64(0.05)}.IsEmpty())
}

func TestCoreWebVitalsMetricsOrderAndSkips(t *testing.T) {
	v := CoreWebVitals{
		LCP: Float64(2400),
		CLS: Float64(0.08),
		INP: Float64(180),
	}

	metrics := v.Metrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, []Metric{
		{Name: "LCP", Value: 2400},
		{Name: "CLS", Value: 0.08},
		{Name: "INP", Value: 180},
	}, metrics)

	assert.Empty(t, CoreWebVitals{}.Metrics())
}

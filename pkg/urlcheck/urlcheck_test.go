package urlcheck

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmetrics/beacon/pkg/host/hosttest"
)

func newValidator(t *testing.T, origin string) *Validator {
	t.Helper()
	o, err := url.Parse(origin)
	require.NoError(t, err)
	return NewValidator(o)
}

func TestIsSafeRejectsDangerousSchemes(t *testing.T) {
	inputs := []string{
		"javascript:alert(1)",
		"JAVASCRIPT:alert(1)",
		"jAvAsCrIpT:alert(1)",
		"  javascript:alert(1)",
		"java script:alert(1)",
		"%6A%61%76%61script:alert(1)",
		"%4A%41%56%41SCRIPT:alert(1)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"DATA:text/html,foo",
		"%64%61%74%61:text/html,foo",
		"vbscript:msgbox(1)",
		"VBScript:msgbox(1)",
		"file:///etc/passwd",
		"FILE:///etc/passwd",
		"about:blank",
		"About:Blank",
		"blob:https://example.com/uuid",
	}

	v := newValidator(t, "https://example.com")
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assert.False(t, v.IsSafe(input), "expected %q to be rejected", input)
			assert.False(t, v.IsSafeExternal(input), "expected %q to be rejected even with allowExternal", input)
		})
	}
}

func TestIsSafeRejectsStructuralAttacks(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason Reason
	}{
		{name: "empty", input: "", reason: ReasonEmpty},
		{name: "whitespace only", input: "   ", reason: ReasonEmpty},
		{name: "tab smuggled scheme", input: "java\tscript:alert(1)", reason: ReasonControlChars},
		{name: "newline in path", input: "/path\nmore", reason: ReasonControlChars},
		{name: "protocol relative", input: "//evil.example/path", reason: ReasonProtocolRelative},
		{name: "double backslash", input: `\\evil.example\path`, reason: ReasonProtocolRelative},
		{name: "slash backslash", input: `/\evil.example/path`, reason: ReasonProtocolRelative},
		{name: "non http scheme", input: "ftp://example.com/file", reason: ReasonBadProtocol},
	}

	v := newValidator(t, "https://example.com")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Check(tt.input, false)
			assert.False(t, result.Safe)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestIsSafeAcceptsSameOrigin(t *testing.T) {
	inputs := []string{
		"/path",
		"./path",
		"/path?q=1#section",
		"https://example.com/pricing",
		"https://example.com",
	}

	v := newValidator(t, "https://example.com")
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assert.True(t, v.IsSafe(input), "expected %q to be accepted", input)
		})
	}
}

func TestIsSafeCrossOrigin(t *testing.T) {
	v := newValidator(t, "https://example.com")

	t.Run("rejected by default", func(t *testing.T) {
		result := v.Check("https://external.example/page", false)
		assert.False(t, result.Safe)
		assert.Equal(t, ReasonCrossOrigin, result.Reason)
	})

	t.Run("accepted with allowExternal", func(t *testing.T) {
		assert.True(t, v.IsSafeExternal("https://external.example/page"))
	})

	t.Run("different scheme is cross origin", func(t *testing.T) {
		assert.False(t, v.IsSafe("http://example.com/page"))
	})

	t.Run("different port is cross origin", func(t *testing.T) {
		assert.False(t, v.IsSafe("https://example.com:8443/page"))
	})
}

func TestCheckResolvesRelative(t *testing.T) {
	v := newValidator(t, "https://example.com")

	result := v.Check("./docs/install", false)
	require.True(t, result.Safe)
	assert.Equal(t, "https://example.com/docs/install", result.Resolved.String())
}

func TestCheckMemoization(t *testing.T) {
	v := newValidator(t, "https://example.com")

	first := v.Check("/path", false)
	second := v.Check("/path", false)
	assert.Equal(t, first, second)

	// External and internal modes are cached independently.
	assert.False(t, v.Check("https://external.example", false).Safe)
	assert.True(t, v.Check("https://external.example", true).Safe)
	assert.False(t, v.Check("https://external.example", false).Safe)
}

type recordingMonitor struct {
	reasons     []Reason
	urlPresents []bool
}

func (m *recordingMonitor) ReportUnsafeURL(reason Reason, urlPresent bool) {
	m.reasons = append(m.reasons, reason)
	m.urlPresents = append(m.urlPresents, urlPresent)
}

func TestSafeNavigate(t *testing.T) {
	t.Run("blocks cross origin and reports", func(t *testing.T) {
		fake := hosttest.New("http://localhost")
		monitor := &recordingMonitor{}
		nav := NewNavigation(NewValidator(fake.Origin()), fake, monitor, nil)

		ok := nav.SafeNavigate("https://evil.example")

		assert.False(t, ok)
		assert.Empty(t, fake.Navigations())
		require.Len(t, monitor.reasons, 1)
		assert.Equal(t, ReasonCrossOrigin, monitor.reasons[0])
		assert.True(t, monitor.urlPresents[0])
	})

	t.Run("blocks empty input with urlPresent false", func(t *testing.T) {
		fake := hosttest.New("http://localhost")
		monitor := &recordingMonitor{}
		nav := NewNavigation(NewValidator(fake.Origin()), fake, monitor, nil)

		assert.False(t, nav.SafeNavigate(""))
		require.Len(t, monitor.urlPresents, 1)
		assert.False(t, monitor.urlPresents[0])
	})

	t.Run("navigates same origin", func(t *testing.T) {
		fake := hosttest.New("http://localhost")
		monitor := &recordingMonitor{}
		nav := NewNavigation(NewValidator(fake.Origin()), fake, monitor, nil)

		ok := nav.SafeNavigate("/pricing")

		assert.True(t, ok)
		require.Len(t, fake.Navigations(), 1)
		assert.Equal(t, "http://localhost/pricing", fake.Navigations()[0])
		assert.Empty(t, monitor.reasons)
	})

	t.Run("nil monitor does not panic", func(t *testing.T) {
		fake := hosttest.New("http://localhost")
		nav := NewNavigation(NewValidator(fake.Origin()), fake, nil, nil)
		assert.False(t, nav.SafeNavigate("javascript:alert(1)"))
	})
}

// Package urlcheck validates user- and config-supplied URLs before they are
// rendered as links or assigned to the top-level location.
//
// Validation is a two-stage pure function: structural rejection (empty
// input, control characters, protocol-relative prefixes) followed by a
// scheme denylist checked both literally and after a best-effort percent
// decode, then resolution to an absolute URL that must be http or https and,
// unless the caller opts into external links, same-origin.
//
// SafeNavigate is the only permitted way to assign the top-level location
// from untrusted strings. It is stricter than the rendering validator: it
// never allows cross-origin navigation, and every refusal is reported to
// monitoring with the unsafe_url reason - carrying only a boolean for
// whether a URL was present, never its content.
package urlcheck

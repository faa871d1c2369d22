// Package sanitize removes personally identifying data from event
// properties before they reach a provider.
//
// Detection policy is deliberately conservative and explicitly configurable:
// a denylist of sensitive key fragments plus one email value pattern that
// requires a two-letter-or-longer TLD. The email heuristic will miss
// obfuscated addresses; that false-negative trade-off is intentional and
// must not be "fixed" into a stricter pattern that could reject legitimate
// non-PII strings.
//
// Sanitization is deterministic and side-effect-free apart from an optional
// development-mode warning that names the dropped keys but never their
// values.
package sanitize

// Package httputil provides request/response helpers and middleware for the
// development event sink: JSON encoding, standardized error bodies, CORS
// for browser clients, panic recovery and request logging.
package httputil

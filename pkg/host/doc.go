// Package host defines the narrow capability interfaces the telemetry
// pipeline needs from its embedding environment: script injection and
// global sink lookup, scroll geometry, performance entry observation,
// page lifecycle signals, and navigation.
//
// The pipeline never touches ambient globals directly. Every collector and
// validator takes the capability it depends on, so all of them can be unit
// tested against the fake in package hosttest without any DOM emulation.
package host

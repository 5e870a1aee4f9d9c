// Package telemetry provides optional time-series recording for Rush Core.
//
// When enabled, parcel status transitions, driver location updates and
// the live-connection gauge are written to InfluxDB with non-blocking,
// batched writes. Telemetry is best-effort: a disabled or unreachable
// server never affects request handling.
package telemetry

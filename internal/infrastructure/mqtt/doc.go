// Package mqtt provides the optional event-bridge client for Rush Core.
//
// When enabled, store change events (new parcels, parcel and driver
// updates) are published to an external MQTT broker so downstream
// consumers — warehouse dashboards, analytics pipelines — can follow
// shipment activity without polling the HTTP API. The bridge is
// publish-only; Rush Core never ingests broker traffic.
//
// Thread Safety: all methods are safe for concurrent use.
package mqtt

// Package tracking owns the in-memory state of the parcel-tracking service.
//
// All entity collections (users, parcels, drivers, activity feed, alerts,
// notifications) live inside a single Store. The raw collections are never
// exposed: every read returns a defensive copy and every mutation is atomic
// with respect to the entity it targets. State is volatile by design —
// nothing survives a restart.
//
// Successful parcel and driver mutations emit change events in the exact
// order the mutations were applied. Subscribers are invoked synchronously
// and must not block; slow consumers are expected to buffer internally.
//
// Tracking IDs are 16-character strings over A-Z0-9, drawn uniformly at
// random and checked against all currently assigned IDs. The keyspace
// (36^16) dwarfs any realistic parcel count, so a redraw is effectively
// never needed, but the generator still bounds its retries.
package tracking

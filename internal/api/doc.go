// Package api provides the HTTP REST API and WebSocket hub for Rush Core.
//
// It exposes registration/login, public parcel creation and tracking,
// admin-only fleet and dashboard operations, and a live WebSocket feed
// that fans store change events out to every connected client.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

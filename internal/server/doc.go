// Package server is the WebSocket transport and HTTP surface of roomrelay.
//
// The implementation is organized into specialized files for configuration,
// the client hub, per-connection pumps, routing, and HTTP handlers. Routing
// decisions live in package relay; this package only accepts sockets, moves
// bytes, and reports connection lifecycle events.
package server

// Package relay is the routing core of roomrelay: a sharded connection
// registry, a room index, a broadcast router with per-recipient delivery
// reports, and the lifecycle coordinator that keeps the three consistent.
//
// The package knows nothing about WebSockets. A transport supplies a Sender
// for outbound frames and drives the Coordinator with open, close and
// inbound frame events:
//
//	rooms := relay.NewRoomIndex()
//	registry := relay.NewRegistry(rooms)
//	router := relay.NewRouter(registry, rooms, transport)
//	coordinator := relay.NewCoordinator(registry, rooms, router)
//
//	_ = coordinator.OnOpen(ctx, "c1")
//	coordinator.Dispatch(ctx, "c1", []byte(`{"event":"join","data":{"client_id":"lobby"}}`))
//	coordinator.OnClose("c1")
//
// Delivery is at-most-once and best-effort. A failed send to one connection
// is recorded in the DeliveryReport and never stops delivery to the others.
package relay

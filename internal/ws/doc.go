// Package ws implements the WebSocket stream for twinpulse.
//
// Hub keeps the set of connected clients and pushes the engine snapshot to
// all of them whenever the telemetry clock ticks.
//
// New(engine, origins) creates a Hub.
// Hub.Run(ctx) fans published updates out to clients, blocks until ctx is
// cancelled, then closes all active connections.
// Hub.Publish is an engine.Observer; subscribe it to the clock.
// Hub.ServeHTTP upgrades an HTTP connection, sends the current snapshot
// immediately, then streams one message per tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// Clients may send:
//
//	{"action": "dismiss", "id": "temp-..."}
//
// which dismisses the alert and pushes a fresh snapshot to everyone.
// The endpoint is mounted at /ws/stream by the server.
package ws

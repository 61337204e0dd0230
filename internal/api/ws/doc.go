// Package ws streams dependency health transitions over WebSocket.
//
// A single handler subscribes to the degradation manager's health
// events and fans each transition out to every connected client. Each
// client gets its own write pump, so one slow consumer never stalls
// the stream; a client whose send buffer fills up is disconnected.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//   - subscribe: Narrow the stream to named dependencies (empty = all)
//   - snapshot: Request a fresh health snapshot
//
// Message Types (Server → Client):
//   - system: Connection established, carries the client id
//   - snapshot: Current health of every registered dependency
//   - health: One health transition (dependency, from, to, reason)
//   - pong: Ping reply
//   - error: Malformed or unknown client message
//
// Example Usage:
//
//	handler := ws.NewHandler(manager).WithMetrics(metrics).WithLogger(logger)
//	router.GET("/stream/health", handler.HandleConnection)
package ws

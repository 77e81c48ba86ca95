// Package ws implements the WebSocket latency feed.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker. It blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket. A client subscribes
// either in the URL (?regions=us-east,eu-west&threshold_ms=180) or by sending
// the same JSON body accepted by POST /api/latency. Each subscription is
// answered immediately and re-sent on every tick; a new request replaces the
// old one.
//
// Messages sent to clients:
//
//	{"event": "latency", "data": { /* same schema as POST /api/latency */ }}
//	{"event": "error",   "error": "`regions` must be a list of strings"}
//
// The endpoint is mounted at /ws/latency behind the api middleware.
package ws

// Package api implements the HTTP surface of the latency metrics server.
//
// New(store, opts) returns an http.Handler that serves:
//
//	POST /api/latency           — {"regions": [...], "threshold_ms": N} → per-region summaries
//	GET  /, /api                — {"status": "ok", "service": <name>}
//	GET  /ping, /api/ping       — {"msg": "pong"}
//	GET  /favicon.ico           — empty image/x-icon
//	GET  /api/regions           — regions in the dataset with record counts
//	GET  /metrics               — Prometheus text exposition of every region
//	GET  /ws/latency            — WebSocket feed, when opts.Stream is set
//
// The POST response is a JSON object keyed by region in request order.
// Request shape is checked by DecodeRequest before the aggregator runs;
// violations are answered with 400 and {"detail": "..."}.
//
// Every response carries CORS headers (origin from opts.AllowOrigin) and an
// X-Request-ID. OPTIONS requests are answered with 200 by the CORS layer.
// Each request is logged once through zerolog; handlers reach the
// request-scoped logger with zerolog.Ctx(r.Context()).
//
// No external HTTP framework is used.
package api

// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort                    — port for the REST API and WebSocket feed (default 8080)
//   - ServiceName                 — name reported by GET / (default "eShopCo Latency Metrics")
//   - CORS.AllowOrigin            — Access-Control-Allow-Origin value (default "*")
//   - Telemetry.Path              — JSON or YAML dataset loaded at startup
//   - Telemetry.Required          — fail startup when Path does not exist
//   - Metrics.DefaultThresholdMs  — breach threshold for /metrics (default 180)
//   - Stream.Interval             — WebSocket re-send interval (default 5s)
//   - Logging.{Level,Format,File} — zerolog level/format and optional rotated file
//
// Load(path) applies defaults before unmarshalling, then validates.
// WatchLogLevel(ctx, path, apply) uses fsnotify on the file's directory and
// reports logging level changes, including after atomic saves.
package config

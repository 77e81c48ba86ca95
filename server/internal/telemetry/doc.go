// Package telemetry holds the read-only telemetry dataset the aggregator
// works on.
//
// Load(path, opts) reads a JSON (default) or YAML (.yaml/.yml) list of
// records once at startup:
//
//	[{"region": "us-east", "latency_ms": 120.5, "uptime_pct": 99.9, ...}, ...]
//
// Fields other than region, latency_ms and uptime_pct are ignored. A record
// missing any of the three, or with latency_ms < 0 or uptime_pct outside
// 0..100, fails the whole load with *DataLoadError. No records are dropped
// silently.
//
// Missing-source policy:
//   - empty path                  — empty store
//   - path does not exist         — empty store and a warning, or
//     *DataLoadError when LoadOptions.Required is set
//   - path exists but is empty    — empty store
//   - unreadable or malformed     — *DataLoadError
//
// Store is immutable after construction. FilterByRegion does an exact,
// case-sensitive match and preserves insertion order.
package telemetry

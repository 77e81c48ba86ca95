// Package aggregate derives per-region latency summaries from the telemetry
// dataset.
//
// Summarize(src, region, thresholdMs) returns, for one region:
//
//	avg_latency — mean of latency_ms, rounded to 4 decimals
//	p95_latency — Percentile95 of latency_ms, rounded to 4 decimals
//	avg_uptime  — mean of uptime_pct, rounded to 4 decimals
//	breaches    — count of latency_ms > thresholdMs (strict)
//
// A region with no records yields the zero RegionSummary; it is not an error.
//
// Percentile95 uses linear interpolation between order statistics at rank
// 0.95*(n-1). Means are computed exactly and then rounded to the nearest
// float64, so every summary is bit-reproducible for a given dataset.
//
// Aggregate(src, req) applies Summarize to each requested region and returns
// a *Result that preserves request order, including in its JSON encoding.
// Everything here is a pure function of its inputs and safe for concurrent use.
package aggregate

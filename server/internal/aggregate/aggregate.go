package aggregate

import (
	"bytes"
	"encoding/json"

	"github.com/eshopco/latencymetrics/server/internal/telemetry"
)

// Source is the read side of the telemetry store the aggregator needs.
type Source interface {
	FilterByRegion(region string) []telemetry.Record
}

// Request is one aggregation query. Regions are summarized in the order
// given; duplicates are allowed.
type Request struct {
	Regions     []string `json:"regions"`
	ThresholdMs float64  `json:"threshold_ms"`
}

// RegionSummary holds the derived metrics for one region. A region without
// records has every field at zero.
type RegionSummary struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// Summarize computes the RegionSummary for region. Latency and uptime
// figures are rounded to 4 decimal places; a breach is a latency strictly
// greater than thresholdMs.
func Summarize(src Source, region string, thresholdMs float64) RegionSummary {
	rows := src.FilterByRegion(region)
	if len(rows) == 0 {
		return RegionSummary{}
	}

	latencies := make([]float64, len(rows))
	uptimes := make([]float64, len(rows))
	var breaches int
	for i, r := range rows {
		latencies[i] = r.LatencyMs
		uptimes[i] = r.UptimePct
		if r.LatencyMs > thresholdMs {
			breaches++
		}
	}

	return RegionSummary{
		AvgLatency: round4(mean(latencies)),
		P95Latency: round4(Percentile95(latencies)),
		AvgUptime:  round4(mean(uptimes)),
		Breaches:   breaches,
	}
}

// Aggregate summarizes every region in req, keyed by region name in request
// order. A region repeated in the request keeps its first position and is
// recomputed; the last computation wins.
func Aggregate(src Source, req Request) *Result {
	res := newResult(len(req.Regions))
	for _, region := range req.Regions {
		res.set(region, Summarize(src, region, req.ThresholdMs))
	}
	return res
}

// Result is an insertion-ordered mapping from region name to summary.
// It marshals to a JSON object whose keys follow that order.
type Result struct {
	order    []string
	byRegion map[string]RegionSummary
}

func newResult(capacity int) *Result {
	return &Result{
		order:    make([]string, 0, capacity),
		byRegion: make(map[string]RegionSummary, capacity),
	}
}

func (r *Result) set(region string, s RegionSummary) {
	if _, ok := r.byRegion[region]; !ok {
		r.order = append(r.order, region)
	}
	r.byRegion[region] = s
}

// Regions returns the keys in order.
func (r *Result) Regions() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the summary for region.
func (r *Result) Get(region string) (RegionSummary, bool) {
	s, ok := r.byRegion[region]
	return s, ok
}

// Len returns the number of distinct regions.
func (r *Result) Len() int {
	return len(r.order)
}

// MarshalJSON encodes the result as an object with keys in request order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, region := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(region)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.byRegion[region])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

package api

import (
	"bytes"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/eshopco/latencymetrics/server/internal/aggregate"
)

// Exposed metric names.
const (
	metricAvgLatency = "telemetry_avg_latency_ms"
	metricP95Latency = "telemetry_p95_latency_ms"
	metricAvgUptime  = "telemetry_avg_uptime_pct"
	metricBreaches   = "telemetry_breaches"
	metricRecords    = "telemetry_records"
	metricThreshold  = "telemetry_breach_threshold_ms"
)

// metrics returns GET /metrics — every region in the dataset summarized at
// threshold_ms (query parameter, or the configured default), rendered in
// the Prometheus text exposition format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	threshold := h.opts.DefaultThresholdMs
	if v := r.URL.Query().Get("threshold_ms"); v != "" {
		t, err := ParseThreshold(v)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		threshold = t
	}

	var buf bytes.Buffer
	for _, mf := range h.buildFamilies(threshold) {
		if len(mf.Metric) == 0 {
			continue // empty dataset; the text format rejects families without samples
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			jsonErr(w, http.StatusInternalServerError, "could not encode metrics")
			return
		}
	}

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// buildFamilies summarizes every known region and returns one gauge family
// per summary field, regions in dataset order.
func (h *Handler) buildFamilies(threshold float64) []*dto.MetricFamily {
	avg := gaugeFamily(metricAvgLatency, "Mean latency per region, rounded to 4 decimals.")
	p95 := gaugeFamily(metricP95Latency, "95th percentile latency per region, rounded to 4 decimals.")
	up := gaugeFamily(metricAvgUptime, "Mean uptime percentage per region, rounded to 4 decimals.")
	br := gaugeFamily(metricBreaches, "Records with latency strictly above the breach threshold.")
	rc := gaugeFamily(metricRecords, "Telemetry records per region.")
	th := gaugeFamily(metricThreshold, "Breach threshold used for this exposition.")
	th.Metric = append(th.Metric, &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(threshold)}})

	for _, region := range h.store.Regions() {
		s := aggregate.Summarize(h.store, region, threshold)
		avg.Metric = append(avg.Metric, regionGauge(region, s.AvgLatency))
		p95.Metric = append(p95.Metric, regionGauge(region, s.P95Latency))
		up.Metric = append(up.Metric, regionGauge(region, s.AvgUptime))
		br.Metric = append(br.Metric, regionGauge(region, float64(s.Breaches)))
		rc.Metric = append(rc.Metric, regionGauge(region, float64(h.store.Count(region))))
	}
	return []*dto.MetricFamily{avg, p95, up, br, rc, th}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func regionGauge(region string, v float64) *dto.Metric {
	return &dto.Metric{
		Label: []*dto.LabelPair{{Name: proto.String("region"), Value: proto.String(region)}},
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

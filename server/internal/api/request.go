package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/eshopco/latencymetrics/server/internal/aggregate"
)

// ValidationError reports a request body with the wrong shape. It is
// answered with 400 and never reaches the aggregator.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

// DecodeRequest parses and validates an aggregation request body:
// regions must be a JSON array of strings and threshold_ms a JSON number.
// Unknown fields are ignored.
func DecodeRequest(data []byte) (aggregate.Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return aggregate.Request{}, &ValidationError{Field: "body", Msg: "request body must be a JSON object"}
	}

	var req aggregate.Request

	regions, ok := decodeRegions(fields["regions"])
	if !ok {
		return aggregate.Request{}, &ValidationError{Field: "regions", Msg: "`regions` must be a list of strings"}
	}
	req.Regions = regions

	raw, ok := fields["threshold_ms"]
	if !ok || !isNumber(raw) || json.Unmarshal(raw, &req.ThresholdMs) != nil {
		return aggregate.Request{}, &ValidationError{Field: "threshold_ms", Msg: "`threshold_ms` must be a number"}
	}

	return req, nil
}

// decodeRegions accepts only a JSON array whose every element is a JSON
// string. Unmarshalling straight into []string would turn null elements
// into "".
func decodeRegions(raw json.RawMessage) ([]string, bool) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || b[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '"' {
			return nil, false
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// isNumber reports whether raw is a JSON number literal rather than a
// string, boolean, null, array or object.
func isNumber(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return false
	}
	c := b[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// ParseThreshold parses a threshold_ms query value. strconv accepts NaN and
// infinities, which no JSON body can carry, so they are rejected here too.
func ParseThreshold(v string) (float64, error) {
	t, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, &ValidationError{Field: "threshold_ms", Msg: "`threshold_ms` must be a number"}
	}
	return t, nil
}

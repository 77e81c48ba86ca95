package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadOptions controls how Load treats a missing source.
type LoadOptions struct {
	// Required makes a missing file a DataLoadError instead of an empty store.
	Required bool
}

// DataLoadError reports a telemetry source that exists but cannot be turned
// into a Store. A server must not start serving after one.
type DataLoadError struct {
	Path  string
	Index int    // offending record, -1 when the error is not record-specific
	Field string // offending field, "" when not field-specific
	Err   error
}

func (e *DataLoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "telemetry: load %q", e.Path)
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *DataLoadError) Unwrap() error { return e.Err }

var (
	errMissing    = errors.New("missing required field")
	errOutOfRange = errors.New("value out of range")
	errWrongType  = errors.New("wrong type")
)

// rawRecord distinguishes absent fields from zero values.
type rawRecord struct {
	Region    *string  `json:"region" yaml:"region"`
	LatencyMs *float64 `json:"latency_ms" yaml:"latency_ms"`
	UptimePct *float64 `json:"uptime_pct" yaml:"uptime_pct"`
}

// Load reads the telemetry dataset at path. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON; both hold a top-level list
// of records.
//
// An empty path, or an empty file, yields an empty store. A path that does
// not exist yields an empty store unless opts.Required is set. Every other
// failure, including a single malformed record, is a *DataLoadError.
func Load(path string, opts LoadOptions) (*Store, error) {
	if path == "" {
		log.Info().Msg("telemetry: no source configured, starting with empty dataset")
		return Empty(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !opts.Required {
		log.Warn().Str("path", path).Msg("telemetry: source not found, starting with empty dataset")
		return newStore(path, nil), nil
	}
	if err != nil {
		return nil, &DataLoadError{Path: path, Index: -1, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		log.Warn().Str("path", path).Msg("telemetry: source is empty")
		return newStore(path, nil), nil
	}

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		records, err = decodeYAML(path, data)
	default:
		records, err = decodeJSON(path, data)
	}
	if err != nil {
		return nil, err
	}

	st := newStore(path, records)
	log.Info().
		Str("path", path).
		Int("records", st.Len()).
		Int("regions", len(st.regions)).
		Msg("telemetry: dataset loaded")
	return st, nil
}

func decodeJSON(path string, data []byte) ([]Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &DataLoadError{Path: path, Index: -1, Err: fmt.Errorf("parse json: %w", err)}
	}
	out := make([]Record, 0, len(items))
	for i, item := range items {
		var raw rawRecord
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, &DataLoadError{Path: path, Index: i, Err: fmt.Errorf("parse json: %w", err)}
		}
		rec, err := raw.validate(path, i)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeYAML(path string, data []byte) ([]Record, error) {
	var items []yaml.Node
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, &DataLoadError{Path: path, Index: -1, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	out := make([]Record, 0, len(items))
	for i := range items {
		if err := checkYAMLRegion(&items[i]); err != nil {
			return nil, &DataLoadError{Path: path, Index: i, Field: "region", Err: err}
		}
		var raw rawRecord
		if err := items[i].Decode(&raw); err != nil {
			return nil, &DataLoadError{Path: path, Index: i, Err: fmt.Errorf("parse yaml: %w", err)}
		}
		rec, err := raw.validate(path, i)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// checkYAMLRegion rejects a region scalar that YAML resolves to anything but
// a string. Decoding into *string would otherwise accept `region: 123` or
// `region: true` as "123" and "true". A null region is left to validate.
func checkYAMLRegion(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for j := 0; j+1 < len(n.Content); j += 2 {
		if n.Content[j].Value != "region" {
			continue
		}
		v := n.Content[j+1]
		if v.Kind == yaml.AliasNode && v.Alias != nil {
			v = v.Alias
		}
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("%w: line %d: want string", errWrongType, v.Line)
		}
		switch tag := v.ShortTag(); tag {
		case "!!str", "!!null":
		default:
			return fmt.Errorf("%w: line %d: got %s %q, want string", errWrongType, v.Line, tag, v.Value)
		}
	}
	return nil
}

// validate enforces presence and the documented value ranges.
func (r rawRecord) validate(path string, i int) (Record, error) {
	fail := func(field string, err error) (Record, error) {
		return Record{}, &DataLoadError{Path: path, Index: i, Field: field, Err: err}
	}
	switch {
	case r.Region == nil:
		return fail("region", errMissing)
	case r.LatencyMs == nil:
		return fail("latency_ms", errMissing)
	case r.UptimePct == nil:
		return fail("uptime_pct", errMissing)
	}

	lat, up := *r.LatencyMs, *r.UptimePct
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < 0 {
		return fail("latency_ms", fmt.Errorf("%w: %v, want finite >= 0", errOutOfRange, lat))
	}
	if math.IsNaN(up) || up < 0 || up > 100 {
		return fail("uptime_pct", fmt.Errorf("%w: %v, want 0..100", errOutOfRange, up))
	}
	return Record{Region: *r.Region, LatencyMs: lat, UptimePct: up}, nil
}

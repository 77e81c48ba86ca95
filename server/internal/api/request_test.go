package api

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeRequest_Valid(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"regions":["b","a","b"],"threshold_ms":-1.5e2,"extra":{"x":1}}`))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if !reflect.DeepEqual(req.Regions, []string{"b", "a", "b"}) {
		t.Errorf("Regions: got %v, want [b a b]", req.Regions)
	}
	if req.ThresholdMs != -150 {
		t.Errorf("ThresholdMs: got %v, want -150", req.ThresholdMs)
	}
}

func TestDecodeRequest_EmptyRegionsNotNil(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"regions":[],"threshold_ms":0}`))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Regions == nil || len(req.Regions) != 0 {
		t.Errorf("Regions: got %#v, want empty non-nil slice", req.Regions)
	}
}

func TestDecodeRequest_ValidationErrorFields(t *testing.T) {
	tests := []struct {
		body, field string
	}{
		{`null`, "body"},
		{`42`, "body"},
		{`{"regions":{"a":1},"threshold_ms":1}`, "regions"},
		{`{"regions":[null],"threshold_ms":1}`, "regions"},
		{`{"regions":["a",null,"b"],"threshold_ms":1}`, "regions"},
		{`{"regions":[true],"threshold_ms":1}`, "regions"},
		{`{"regions":["a"],"threshold_ms":[1]}`, "threshold_ms"},
		{`{"regions":["a"],"threshold_ms":1e999}`, "threshold_ms"},
	}
	for _, tc := range tests {
		_, err := DecodeRequest([]byte(tc.body))
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("DecodeRequest(%s): got %v, want *ValidationError", tc.body, err)
			continue
		}
		if ve.Field != tc.field {
			t.Errorf("DecodeRequest(%s): field %q, want %q", tc.body, ve.Field, tc.field)
		}
	}
}

func TestParseThreshold(t *testing.T) {
	for _, v := range []string{"180", "-1.5e2", "0"} {
		if _, err := ParseThreshold(v); err != nil {
			t.Errorf("ParseThreshold(%q): %v", v, err)
		}
	}
	for _, v := range []string{"", "fast", "NaN", "nan", "+Inf", "-Infinity", "1e999"} {
		_, err := ParseThreshold(v)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "threshold_ms" {
			t.Errorf("ParseThreshold(%q): got %v, want threshold_ms ValidationError", v, err)
		}
	}
}

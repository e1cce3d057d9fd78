package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestObservation_HasFinitePrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  bool
	}{
		{"positive", 150.25, true},
		{"zero", 0, true},
		{"negative", -1, true},
		{"NaN", math.NaN(), false},
		{"+Inf", math.Inf(1), false},
		{"-Inf", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Observation{Symbol: "SOL", Price: tt.price}
			if got := o.HasFinitePrice(); got != tt.want {
				t.Errorf("HasFinitePrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObservation_HasPositiveConfidence(t *testing.T) {
	tests := []struct {
		name string
		conf float64
		want bool
	}{
		{"tight", 0.05, true},
		{"wide", 1e9, true},
		{"zero", 0, false},
		{"negative", -0.5, false},
		{"NaN", math.NaN(), false},
		{"+Inf", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Observation{Symbol: "SOL", Price: 1, Confidence: tt.conf}
			if got := o.HasPositiveConfidence(); got != tt.want {
				t.Errorf("HasPositiveConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObservation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		obs     Observation
		wantErr error
	}{
		{
			name: "valid",
			obs:  Observation{Symbol: "SOL", Price: 150, Confidence: 0.05, Timestamp: 1700000000, Source: "pyth"},
		},
		{
			name: "zero confidence is a valid raw sample",
			obs:  Observation{Symbol: "SOL", Price: 150, Confidence: 0, Source: "pyth"},
		},
		{
			name:    "empty symbol",
			obs:     Observation{Price: 150, Confidence: 0.05},
			wantErr: ErrEmptySymbol,
		},
		{
			name:    "NaN price",
			obs:     Observation{Symbol: "SOL", Price: math.NaN(), Confidence: 0.05},
			wantErr: ErrNonFinitePrice,
		},
		{
			name:    "negative confidence",
			obs:     Observation{Symbol: "SOL", Price: 150, Confidence: -1},
			wantErr: ErrInvalidConfidence,
		},
		{
			name:    "reserved source",
			obs:     Observation{Symbol: "SOL", Price: 150, Confidence: 1, Source: SourceConsensus},
			wantErr: ErrReservedSourceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestObservation_IsDerived(t *testing.T) {
	for _, src := range []string{SourceConsensus, SourceWeightedConsensus} {
		if !(Observation{Source: src}).IsDerived() {
			t.Errorf("IsDerived() = false for %q", src)
		}
	}
	if (Observation{Source: "pyth"}).IsDerived() {
		t.Error("IsDerived() = true for provider source")
	}
}

func TestObservation_JSONFieldNames(t *testing.T) {
	o := Observation{Symbol: "SOL", Price: 150.5, Confidence: 0.1, Timestamp: 1700000000, Source: SourceConsensus}

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"symbol", "price", "confidence", "timestamp", "source"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing JSON field %q in %s", key, data)
		}
	}
	if len(fields) != 5 {
		t.Errorf("got %d JSON fields, want 5", len(fields))
	}
}

package engine_test

import (
	"testing"

	"hotel_rates/internal/domain"
	"hotel_rates/internal/engine"
)

func TestApplyAdjustment(t *testing.T) {
	cases := []struct {
		name    string
		adj     domain.Adjustment
		current string
		want    string
	}{
		{"percentage increase", domain.Adjustment{Type: domain.AdjustPercentage, Value: dec("20"), Direction: domain.Increase}, "100", "120"},
		{"percentage decrease", domain.Adjustment{Type: domain.AdjustPercentage, Value: dec("10"), Direction: domain.Decrease}, "200", "180"},
		{"direction normalizes sign", domain.Adjustment{Type: domain.AdjustPercentage, Value: dec("-10"), Direction: domain.Decrease}, "200", "180"},
		{"fixed increase", domain.Adjustment{Type: domain.AdjustFixed, Value: dec("15"), Direction: domain.Increase}, "100", "115"},
		{"fixed decrease", domain.Adjustment{Type: domain.AdjustFixed, Value: dec("10"), Direction: domain.Decrease}, "110", "100"},
		{"multiply", domain.Adjustment{Type: domain.AdjustMultiply, Value: dec("1.5")}, "100", "150"},
		{"multiply below one decreases", domain.Adjustment{Type: domain.AdjustMultiply, Value: dec("0.8"), Direction: domain.Increase}, "100", "80"},
		{"multiply ignores direction", domain.Adjustment{Type: domain.AdjustMultiply, Value: dec("1.2"), Direction: domain.Decrease}, "100", "120"},
		{"clamped at zero", domain.Adjustment{Type: domain.AdjustFixed, Value: dec("500"), Direction: domain.Decrease}, "100", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.ApplyAdjustment(tc.adj, dec(tc.current))
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("ApplyAdjustment = %s, want %s", got, tc.want)
			}
		})
	}
}

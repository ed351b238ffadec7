package models_test

import (
	"testing"

	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/shopspring/decimal"
)

func TestComputeVariancePercent(t *testing.T) {
	cases := []struct {
		name      string
		loaded    string
		delivered string
		want      string
	}{
		{"no variance", "10000", "10000", "0"},
		{"one percent short", "10000", "9900", "1"},
		{"two percent short", "10000", "9800", "2"},
		{"over-delivery counts too", "10000", "10300", "3"},
		{"half percent", "20000", "19900", "0.5"},
		{"rounded to two decimals", "30000", "29000", "3.33"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loaded := decimal.RequireFromString(tc.loaded)
			delivered := decimal.RequireFromString(tc.delivered)
			want := decimal.RequireFromString(tc.want)

			got := models.ComputeVariancePercent(loaded, delivered)
			if !got.Equal(want) {
				t.Fatalf("variance(%s, %s): expected %s, got %s", tc.loaded, tc.delivered, want, got)
			}
		})
	}
}

func TestComputeVariancePercent_ZeroLoaded(t *testing.T) {
	got := models.ComputeVariancePercent(decimal.Zero, decimal.NewFromInt(100))
	if !got.IsZero() {
		t.Fatalf("expected 0 for zero loaded volume, got %s", got)
	}
}

// The threshold is exclusive: exactly 2% completes, anything above flags.
func TestVarianceThreshold_ExactTwoPercentIsNotFlagged(t *testing.T) {
	loaded := decimal.NewFromInt(10000)

	exact := models.ComputeVariancePercent(loaded, decimal.NewFromInt(9800))
	if exact.GreaterThan(models.VarianceThresholdPercent) {
		t.Fatalf("2%% variance must not exceed the threshold, got %s", exact)
	}

	above := models.ComputeVariancePercent(loaded, decimal.NewFromInt(9799))
	if !above.GreaterThan(models.VarianceThresholdPercent) {
		t.Fatalf("variance above 2%% must exceed the threshold, got %s", above)
	}
}

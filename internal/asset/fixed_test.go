package asset_test

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/fd1az/bond-desk/internal/asset"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int32
		want     float64
	}{
		{name: "18 decimals", raw: "9500000000000000000", decimals: 18, want: 9.5},
		{name: "9 decimals", raw: "1000000000000000", decimals: 9, want: 1_000_000},
		{name: "8 decimals", raw: "300000000000", decimals: 8, want: 3000},
		{name: "zero", raw: "0", decimals: 18, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asset.ToFloatString(tt.raw, tt.decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if asset.ToFloat(nil, 18) != 0 {
		t.Error("nil raw should be zero")
	}
	if _, err := asset.ToFloatString("12x", 0); !errors.Is(err, asset.ErrInvalidRaw) {
		t.Errorf("err = %v", err)
	}
}

func TestToFixed(t *testing.T) {
	got, err := asset.ToFixed(9.5, 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "9500000000000000000" {
		t.Errorf("got %s", got)
	}

	truncated, err := asset.ToFixedBig(1.239, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if truncated.Cmp(big.NewInt(123)) != 0 {
		t.Errorf("truncated = %s, want 123", truncated)
	}

	if _, err := asset.ToFixed(math.Inf(1), 18); !errors.Is(err, asset.ErrNonFinite) {
		t.Errorf("Inf err = %v", err)
	}
	if _, err := asset.ToFixed(math.NaN(), 18); !errors.Is(err, asset.ErrNonFinite) {
		t.Errorf("NaN err = %v", err)
	}
}

func TestDiv(t *testing.T) {
	if _, err := asset.Div(1, 0); !errors.Is(err, asset.ErrDivisionByZero) {
		t.Errorf("err = %v, want ErrDivisionByZero", err)
	}

	got, err := asset.Div(1_500_020, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 150_002 {
		t.Errorf("got %v", got)
	}

	if _, err := asset.Div(math.MaxFloat64, math.SmallestNonzeroFloat64); !errors.Is(err, asset.ErrNonFinite) {
		t.Errorf("overflow err = %v", err)
	}
}

func TestPow10(t *testing.T) {
	if asset.Pow10(9).Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Error("Pow10(9) mismatch")
	}
}

package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/bond-desk/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	oneDAI := asset.NewAmount(asset.DAI, big.NewInt(1e18))

	if oneDAI.IsZero() {
		t.Error("expected non-zero amount")
	}
	if !oneDAI.ToDecimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", oneDAI.ToDecimal())
	}
	if oneDAI.String() != "1 DAI" {
		t.Errorf("expected '1 DAI', got '%s'", oneDAI.String())
	}
	if oneDAI.ToFloat64() != 1 {
		t.Errorf("ToFloat64 = %v", oneDAI.ToFloat64())
	}
}

func TestAmount_NineDecimals(t *testing.T) {
	amt := asset.NewAmount(asset.DOG, big.NewInt(1_500_000_000))
	if got := amt.StringFixed(2); got != "1.50 3DOG" {
		t.Errorf("StringFixed = %q", got)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "whole", in: "2", want: "2000000000000000000"},
		{name: "fraction", in: "0.5", want: "500000000000000000"},
		{name: "empty is zero", in: "", want: "0"},
		{name: "negative", in: "-1", wantErr: asset.ErrNegativeAmount},
		{name: "too precise", in: "0.0000000000000000001", wantErr: asset.ErrTooManyDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asset.ParseString(asset.WETH, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Raw().String() != tt.want {
				t.Errorf("raw = %s, want %s", got.Raw(), tt.want)
			}
		})
	}
}

func TestParseString_Invalid(t *testing.T) {
	if _, err := asset.ParseString(asset.DAI, "abc"); err == nil {
		t.Error("expected error for invalid decimal")
	}
}

func TestNewAmount_PanicsOnNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	asset.NewAmount(asset.DAI, big.NewInt(-1))
}

func TestRaw_IsCopy(t *testing.T) {
	amt := asset.NewAmount(asset.DAI, big.NewInt(100))
	raw := amt.Raw()
	raw.SetInt64(5)
	if amt.Raw().Int64() != 100 {
		t.Error("mutating Raw() result changed the amount")
	}
}

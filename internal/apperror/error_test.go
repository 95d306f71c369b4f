package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewUsesRegisteredMessage(t *testing.T) {
	err := New(CodeAmountTooSmall)
	if err.Message != "Amount is too small!" {
		t.Errorf("message = %q", err.Message)
	}

	unknown := New(Code("SOMETHING_ELSE"))
	if unknown.Message != "SOMETHING_ELSE" {
		t.Errorf("fallback message = %q", unknown.Message)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeWalletNotConnected, WithContext("bond")))

	if !errors.Is(err, New(CodeWalletNotConnected)) {
		t.Error("expected errors.Is to match by code")
	}
	if !HasCode(err, CodeWalletNotConnected) {
		t.Error("HasCode should match")
	}
	if HasCode(err, CodeLedgerCallFailed) {
		t.Error("HasCode should not match other codes")
	}
	if GetCode(err) != CodeWalletNotConnected {
		t.Errorf("GetCode = %s", GetCode(err))
	}
	if GetCode(errors.New("plain")) != CodeUnknownError {
		t.Error("plain errors map to unknown")
	}
}

func TestWrapKeepsExistingAppError(t *testing.T) {
	orig := New(CodeOracleUnavailable)
	got := Wrap(orig, CodeInternalError, "coingecko")
	if got != orig {
		t.Fatal("expected the same AppError")
	}
	if got.Context != "coingecko" {
		t.Errorf("context = %q", got.Context)
	}

	if Wrap(nil, CodeInternalError, "") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	cause := errors.New("dial tcp: refused")
	wrapped := Wrap(cause, CodeLedgerCallFailed, "terms")
	if !errors.Is(wrapped, cause) {
		t.Error("cause should be reachable")
	}
}

func TestUserMessage(t *testing.T) {
	ledger := New(CodeLedgerCallFailed, WithCause(errors.New("execution reverted: Max capacity reached")))
	if got := UserMessage(ledger); got != "execution reverted: Max capacity reached" {
		t.Errorf("ledger message = %q", got)
	}

	if got := UserMessage(New(CodeWalletNotConnected)); got != "Please connect your wallet!" {
		t.Errorf("wallet message = %q", got)
	}

	if got := UserMessage(errors.New("raw")); got != "raw" {
		t.Errorf("plain message = %q", got)
	}
}

func TestToLog(t *testing.T) {
	err := New(CodeInsufficientBalance, WithCause(errors.New("ds-math-sub-underflow")), WithContext("bond dai")).
		WithTraceID("4bf92f3577b34da6a3ce929d0e0e4736")

	got := err.ToLog()
	want := map[string]any{
		"code":    CodeInsufficientBalance,
		"context": "bond dai",
		"traceId": "4bf92f3577b34da6a3ce929d0e0e4736",
		"cause":   "ds-math-sub-underflow",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["stack"]; !ok {
		t.Error("stack missing")
	}

	bare := New(CodeWalletNotConnected).ToLog()
	for _, k := range []string{"context", "traceId", "cause"} {
		if _, ok := bare[k]; ok {
			t.Errorf("unexpected %s in %v", k, bare)
		}
	}
}

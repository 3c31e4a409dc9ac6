package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
)

func TestStoreErrorMapping(t *testing.T) {
	cases := []struct {
		in   error
		want Kind
	}{
		{repository.ErrNotFound, KindNotFound},
		{fmt.Errorf("%w: idx_allocation_output_order", repository.ErrDuplicate), KindConflict},
		{fmt.Errorf("%w: policy", repository.ErrForbidden), KindPermissionDenied},
		{fmt.Errorf("%w: order pending -> ready", repository.ErrInvalidTransition), KindConflict},
		{&repository.StoreError{Code: "57014", Message: "canceling statement"}, KindBackend},
		{errors.New("connection refused"), KindBackend},
		{conflictError("already allocated to this order"), KindConflict},
	}
	for _, tc := range cases {
		if got := KindOf(storeError("allocation", tc.in)); got != tc.want {
			t.Errorf("storeError(%v) kind = %s, want %s", tc.in, got, tc.want)
		}
	}
	if storeError("allocation", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestErrorMessages(t *testing.T) {
	remaining := 250.0
	err := &Error{Kind: KindValidation, Message: "exceeds remaining weight", Remaining: &remaining}
	if err.Error() != "exceeds remaining weight (remaining 250.000 kg)" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	var errs fieldErrors
	errs.add("partner", "required")
	errs.add("weight_kg", "must be greater than 0")
	if got := errs.err().Error(); got != "invalid input (partner: required; weight_kg: must be greater than 0)" {
		t.Fatalf("unexpected message %q", got)
	}

	backend := storeError("order", errors.New("connection reset"))
	if backend.Error() != "system error: connection reset" {
		t.Fatalf("unexpected message %q", backend.Error())
	}
}

func TestParseWeight(t *testing.T) {
	valid := map[string]int64{
		"150":    150000,
		" 0.5 ":  500,
		"1e3":    1000000,
		"0.001":  1,
		"12.340": 12340,
		"99.999": 99999,
	}
	for raw, want := range valid {
		got, err := ParseWeight(raw)
		if err != nil {
			t.Errorf("ParseWeight(%q) failed: %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("ParseWeight(%q) = %d g, want %d g", raw, got, want)
		}
	}
	for _, raw := range []string{"", "0", "-1", "x", "NaN", "+Inf", "0.0004", "100.0000009", "1e-4", "1e13"} {
		if _, err := ParseWeight(raw); !IsKind(err, KindValidation) {
			t.Errorf("ParseWeight(%q) should fail validation, got %v", raw, err)
		}
	}
}

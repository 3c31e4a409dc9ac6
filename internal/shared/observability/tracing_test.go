package observability

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown := InitTracing(context.Background(), zap.NewNop(), TracingConfig{Enabled: false})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 1, 0: 1, 0.25: 0.25, 1: 1, 7: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Errorf("clampRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "allocation.create")
	if ctx == nil {
		t.Fatal("expected context")
	}
	EndSpan(span, errors.New("boom"))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAllocationCounters(t *testing.T) {
	m := New()
	m.Allocation("ok", 400)
	m.Allocation("ok", 200)
	m.Allocation("conflict", 0)

	if got := testutil.ToFloat64(m.allocations.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok allocations, got %v", got)
	}
	if got := testutil.ToFloat64(m.allocatedKg); got != 600 {
		t.Fatalf("expected 600 kg, got %v", got)
	}
	if got := testutil.ToFloat64(m.allocations.WithLabelValues("conflict")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.FlowEvent("material_received")
	m.Allocation("ok", 1)
	m.SideEffect("audit", false)
	m.IDGeneration("IN", true)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(IngressEventsTotal.WithLabelValues("success"))
	IngressEventsTotal.WithLabelValues("success").Inc()
	if got := testutil.ToFloat64(IngressEventsTotal.WithLabelValues("success")); got != before+1 {
		t.Errorf("ingress_events_total = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(CatalogErrorsTotal)
	CatalogErrorsTotal.Inc()
	if got := testutil.ToFloat64(CatalogErrorsTotal); got != before+1 {
		t.Errorf("catalog_errors_total = %v, want %v", got, before+1)
	}
}

func TestStepDurationRegistered(t *testing.T) {
	StepDurationSeconds.WithLabelValues("load").Observe(0.5)
	if n := testutil.CollectAndCount(StepDurationSeconds); n == 0 {
		t.Error("expected step duration series")
	}
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPosMetricsRegisterAndRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newPosMetricsWithRegisterer(registry)

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheFallback("get")
	m.SetBreakerState(1)
	m.RecordStatusOperation("mark_as_voided", "ok")
	m.RecordStatusConflict()
	m.RecordEventApplied()
	m.RecordEventDuplicated()
	m.RecordEventDropped()
	m.RecordEventFailed()

	if got := testutil.ToFloat64(m.cacheHits); got != 2 {
		t.Fatalf("expected 2 cache hits, got %f", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 1 {
		t.Fatalf("expected 1 cache miss, got %f", got)
	}
	if got := testutil.ToFloat64(m.cacheFallbacks.WithLabelValues("get")); got != 1 {
		t.Fatalf("expected 1 fallback, got %f", got)
	}
	if got := testutil.ToFloat64(m.breakerState); got != 1 {
		t.Fatalf("expected breaker state 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.eventsApplied); got != 1 {
		t.Fatalf("expected 1 applied event, got %f", got)
	}
}

func TestPosMetricsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newPosMetricsWithRegisterer(registry)
	second := newPosMetricsWithRegisterer(registry)

	first.RecordCacheHit()
	second.RecordCacheHit()

	// Повторная регистрация переиспользует существующие коллекторы.
	if got := testutil.ToFloat64(second.cacheHits); got != 2 {
		t.Fatalf("expected shared counter with value 2, got %f", got)
	}
}

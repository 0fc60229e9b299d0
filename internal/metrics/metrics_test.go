package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ldexplorer/logger"
)

func resetMetricHandlers() {
	metricHandlersMu.Lock()
	metricHandlers = make(map[MetricHandlerID]MetricHandler)
	nextMetricHandlerID = 0
	metricHandlersMu.Unlock()
}

func TestRegisterMetricHandlerReturnsUniqueIDs(t *testing.T) {
	resetMetricHandlers()

	id := RegisterMetricHandler(func(Metric) {})
	if id == 0 {
		t.Fatalf("expected non-zero handler id")
	}
	second := RegisterMetricHandler(func(Metric) {})
	if second == 0 || second == id {
		t.Fatalf("expected unique handler id")
	}
	if id := RegisterMetricHandler(nil); id != 0 {
		t.Fatalf("expected zero id for nil handler, got %d", id)
	}
}

func TestEmitDispatchesToHandlers(t *testing.T) {
	resetMetricHandlers()

	events := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { events <- m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	fields := logger.Fields{"run_id": "abc"}
	if _, ok := Emit(logger.GetLogger(), "explorer", "linked_snps", 12, "gauge", fields); !ok {
		t.Fatalf("expected metric to be emitted")
	}
	fields["run_id"] = "mutated"

	select {
	case m := <-events:
		if m.Name != "linked_snps" || m.Value != 12 || m.Type != "gauge" {
			t.Fatalf("unexpected metric: %+v", m)
		}
		if m.Fields["run_id"] != "abc" {
			t.Fatalf("fields not copied: %+v", m.Fields)
		}
	case <-time.After(time.Second):
		t.Fatalf("handler not called")
	}

	if _, ok := Emit(nil, "explorer", "", 1, "", nil); ok {
		t.Fatalf("metric without name should be rejected")
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	Init()
	IncrementLookup(ServiceLDLink, StatusFailed)
	ObserveRun(StatusOK, 2*time.Second)
	IncrementReportWritten("json", "stdout")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`ldexplorer_lookups_total{service="ldlink",status="failed"}`,
		`ldexplorer_runs_total{status="ok"}`,
		`ldexplorer_reports_written_total{destination="stdout",format="json"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

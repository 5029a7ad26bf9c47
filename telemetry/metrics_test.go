package telemetry_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/axle-run/axle/axerr"
	"github.com/axle-run/axle/telemetry"
)

func TestMetrics_NilReceiverMethodsDoNotPanic(t *testing.T) {
	var m *telemetry.Metrics

	done := m.NodeStarted("n1")
	done(nil)
	done(errors.New("boom"))

	m.StageCompleted()
	m.RecordTurn("gpt-4o", "stop", 0, 10, 20)
	m.RecordToolCall("search", nil)
	m.RecordToolCall("search", errors.New("fail"))
}

func TestMetrics_NodeStartedRecordsErrorKind(t *testing.T) {
	m := telemetry.NewMetrics()
	done := m.NodeStarted("draft")
	done(axerr.New(axerr.KindToolExecution, "tool failed"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "axle_dag_node_errors_total") {
		t.Error("expected node error counter in exposition output")
	}
	if !strings.Contains(body, `kind="tool_execution"`) {
		t.Errorf("expected error kind label in output, got:\n%s", body)
	}
}

func TestMetrics_HandlerExposesRegisteredCollectors(t *testing.T) {
	m := telemetry.NewMetrics()
	m.RecordTurn("gpt-4o", "stop", 0, 5, 7)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "axle_agent_turns_total") {
		t.Error("expected agent turns counter in exposition output")
	}
	if !strings.Contains(body, "axle_llm_input_tokens_total") {
		t.Error("expected input tokens counter in exposition output")
	}
}

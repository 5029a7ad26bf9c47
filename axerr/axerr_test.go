package axerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/axle-run/axle/axerr"
)

func TestIs_MatchesDirectKind(t *testing.T) {
	err := axerr.New(axerr.KindCycle, "cycle involving a")
	if !axerr.Is(err, axerr.KindCycle) {
		t.Error("expected Is to match")
	}
	if axerr.Is(err, axerr.KindBudget) {
		t.Error("expected Is to not match a different kind")
	}
}

func TestIs_UnwrapsPlainErrors(t *testing.T) {
	cause := fmt.Errorf("transport reset")
	wrapped := fmt.Errorf("outer: %w", axerr.Wrap(axerr.KindProviderTransport, cause))
	if !axerr.Is(wrapped, axerr.KindProviderTransport) {
		t.Error("expected Is to unwrap through a plain wrapping error")
	}
}

func TestKindOf(t *testing.T) {
	err := axerr.New(axerr.KindToolNotFound, "unknown tool foo").WithTool("foo")
	kind, ok := axerr.KindOf(err)
	if !ok || kind != axerr.KindToolNotFound {
		t.Errorf("got kind=%v ok=%v", kind, ok)
	}

	_, ok = axerr.KindOf(errors.New("plain error"))
	if ok {
		t.Error("expected ok=false for a plain error")
	}
}

func TestWithNodeAndTool_DoNotMutateOriginal(t *testing.T) {
	base := axerr.New(axerr.KindToolExecution, "boom")
	withNode := base.WithNode("n1")

	if base.NodeID != "" {
		t.Errorf("expected original to be unmutated, got NodeID=%q", base.NodeID)
	}
	if withNode.NodeID != "n1" {
		t.Errorf("got NodeID=%q", withNode.NodeID)
	}
}

func TestError_MessageIncludesContext(t *testing.T) {
	err := axerr.New(axerr.KindToolNotFound, "unknown tool").WithNode("n1").WithTool("calc")
	msg := err.Error()
	if !contains(msg, "n1") || !contains(msg, "calc") {
		t.Errorf("expected message to include node and tool context, got %q", msg)
	}
}

func TestUnwrap_ReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := axerr.Wrap(axerr.KindProviderTransport, cause)
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return the original cause")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

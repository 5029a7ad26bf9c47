package cancel_test

import (
	"context"
	"testing"
	"time"

	"github.com/axle-run/axle/cancel"
)

func TestSource_CancelPropagatesToDescendants(t *testing.T) {
	src := cancel.NewSource(context.Background())
	child, cancelChild := context.WithCancel(src.Ctx())
	defer cancelChild()

	src.Cancel()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("expected child context to observe parent cancellation")
	}
}

func TestSource_DoneFalseBeforeCancel(t *testing.T) {
	src := cancel.NewSource(context.Background())
	if src.Done() {
		t.Error("expected Done()=false before cancellation")
	}
	src.Cancel()
	if !src.Done() {
		t.Error("expected Done()=true after cancellation")
	}
}

func TestSource_ErrNilUntilCancelled(t *testing.T) {
	src := cancel.NewSource(context.Background())
	if src.Err() != nil {
		t.Errorf("expected nil Err before cancel, got %v", src.Err())
	}
	src.Cancel()
	if src.Err() == nil {
		t.Error("expected non-nil Err after cancel")
	}
}

func TestTimeoutSource_ExpiresAutomatically(t *testing.T) {
	src := cancel.NewTimeoutSource(context.Background(), 10*time.Millisecond)
	select {
	case <-src.Ctx().Done():
	case <-time.After(time.Second):
		t.Fatal("expected timeout source to expire")
	}
	if !src.Done() {
		t.Error("expected Done()=true after timeout")
	}
}

func TestSource_CancelIsIdempotent(t *testing.T) {
	src := cancel.NewSource(context.Background())
	src.Cancel()
	src.Cancel() // must not panic
}

func TestSource_ParentCancellationPropagatesDown(t *testing.T) {
	parentCtx, parentCancel := context.WithCancel(context.Background())
	src := cancel.NewSource(parentCtx)

	parentCancel()

	select {
	case <-src.Ctx().Done():
	case <-time.After(time.Second):
		t.Fatal("expected source to observe parent cancellation")
	}
}

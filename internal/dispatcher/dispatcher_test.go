package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mucoll/hitstats/pkg/core"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func testEvent(number int32, collections ...string) *core.Event {
	var cols []*core.Collection
	for _, name := range collections {
		cols = append(cols, &core.Collection{Name: name, Type: core.SimTrackerHit})
	}
	return core.NewEvent(1, number, nil, cols)
}

func TestDispatcher_RunsHandlersInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var order []string
	for _, name := range []string{"timing", "mcp", "calmcp"} {
		name := name
		if err := d.Register(name, func(ctx context.Context, ev *core.Event) error {
			order = append(order, name)
			return nil
		}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := d.Dispatch(context.Background(), testEvent(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(order, ","); got != "timing,mcp,calmcp" {
		t.Errorf("expected timing,mcp,calmcp, got %s", got)
	}
	if got := strings.Join(d.Handlers(), ","); got != "timing,mcp,calmcp" {
		t.Errorf("unexpected handler order %s", got)
	}
	if d.Processed("mcp") != 1 {
		t.Errorf("expected 1 processed, got %d", d.Processed("mcp"))
	}
}

func TestDispatcher_DuplicateName(t *testing.T) {
	d, _ := newTestDispatcher(t)

	noop := func(ctx context.Context, ev *core.Event) error { return nil }
	if err := d.Register("timing", noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := d.Register("timing", noop)
	if !errors.Is(err, ErrDuplicateHandler) {
		t.Errorf("expected ErrDuplicateHandler, got %v", err)
	}
}

func TestDispatcher_ErrorStopsEvent(t *testing.T) {
	d, _ := newTestDispatcher(t)

	boom := errors.New("boom")
	secondCalled := false
	d.Register("first", func(ctx context.Context, ev *core.Event) error { return boom })
	d.Register("second", func(ctx context.Context, ev *core.Event) error {
		secondCalled = true
		return nil
	})

	err := d.Dispatch(context.Background(), testEvent(42))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "first: event 42") {
		t.Errorf("error should name handler and event: %v", err)
	}
	if secondCalled {
		t.Error("second handler should not run after a failure")
	}
	if d.Processed("first") != 0 {
		t.Errorf("failed event must not count as processed")
	}
}

func TestDispatcher_CancelledContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("timing", func(ctx context.Context, ev *core.Event) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Dispatch(ctx, testEvent(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("handler should not run on a cancelled context")
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("timing", func(ctx context.Context, ev *core.Event) error {
		return nil
	}, Logged())

	d.Dispatch(context.Background(), testEvent(3))

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("timing", func(ctx context.Context, ev *core.Event) error {
		return fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(context.Background(), testEvent(3))

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_Requires(t *testing.T) {
	d, logger := newTestDispatcher(t)

	calls := 0
	d.Register("vtxprops", func(ctx context.Context, ev *core.Event) error {
		calls++
		return nil
	}, Requires("VertexBarrelCollection", "VertexEndcapCollection"))

	d.Dispatch(context.Background(), testEvent(1, "ECalBarrelCollection"))
	d.Dispatch(context.Background(), testEvent(2, "VertexEndcapCollection"))

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if d.Skipped("vtxprops") != 1 {
		t.Errorf("expected 1 skipped, got %d", d.Skipped("vtxprops"))
	}
	if d.Processed("vtxprops") != 2 {
		t.Errorf("expected 2 processed, got %d", d.Processed("vtxprops"))
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.messages) != 1 || !strings.HasPrefix(logger.messages[0], "DEBUG: no required collection") {
		t.Errorf("unexpected log messages %v", logger.messages)
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("timing", func(ctx context.Context, ev *core.Event) error { return nil })

	if !d.HasHandler("timing") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler("density") {
		t.Error("expected handler to not exist")
	}
	if d.Processed("density") != 0 || d.Skipped("density") != 0 {
		t.Error("unknown handler should report zero counts")
	}
}

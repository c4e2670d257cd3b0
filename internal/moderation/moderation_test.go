package moderation

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestFilter(t *testing.T, threshold int, notifier Notifier) *Filter {
	t.Helper()
	f, err := NewFilter(zap.NewNop(), threshold, time.Minute, notifier)
	if err != nil {
		t.Fatalf("failed to build filter: %v", err)
	}
	return f
}

func TestCheckBlockedPattern(t *testing.T) {
	f := newTestFilter(t, 5, nil)
	ctx := context.Background()

	if f.Check(ctx, "I HATE everything about this", "u1") {
		t.Fatalf("banned pattern was allowed")
	}

	flags := f.Flags()["u1"]
	if len(flags) != 1 {
		t.Fatalf("expected exactly one flag, got %d", len(flags))
	}
	if flags[0].Reason != ReasonBlockedPattern || flags[0].Severity != 2 {
		t.Fatalf("unexpected flag: %+v", flags[0])
	}
	if flags[0].Context == "" {
		t.Fatalf("flag should carry the matched rule")
	}
}

func TestCheckAnonymousBucket(t *testing.T) {
	f := newTestFilter(t, 5, nil)

	if f.Check(context.Background(), "pure violence", "") {
		t.Fatalf("banned pattern was allowed")
	}
	if len(f.Flags()[AnonymousUser]) != 1 {
		t.Fatalf("anonymous flag not recorded: %v", f.Flags())
	}
}

func TestSpamThresholdAndSweep(t *testing.T) {
	f := newTestFilter(t, 5, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if !f.Check(ctx, "hello there", "u1") {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if f.Check(ctx, "hello again", "u1") {
		t.Fatalf("6th message should be blocked as spam")
	}

	flags := f.Flags()["u1"]
	if len(flags) != 1 || flags[0].Reason != ReasonSpam || flags[0].Severity != 1 {
		t.Fatalf("unexpected flags: %+v", flags)
	}

	// Sweeping before the cooldown elapses changes nothing.
	f.sweep(time.Now())
	if f.Check(ctx, "still here", "u1") {
		t.Fatalf("message should still be blocked inside the cooldown")
	}

	// After the cooldown the sweep resets the counter.
	f.sweep(time.Now().Add(2 * time.Minute))
	if !f.Check(ctx, "back after the window", "u1") {
		t.Fatalf("message after cooldown should be allowed")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newTestFilter(t, 5, nil)
	ctx := context.Background()

	if !f.Check(ctx, "hello", "u1") {
		t.Fatalf("first message should be allowed")
	}
	later := time.Now().Add(2 * time.Minute)
	f.sweep(later)
	f.sweep(later)

	for i := 0; i < 5; i++ {
		if !f.Check(ctx, "hello", "u1") {
			t.Fatalf("message %d after reset should be allowed", i+1)
		}
	}
}

func TestSpamCounterSkippedWithoutUser(t *testing.T) {
	f := newTestFilter(t, 1, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if !f.Check(ctx, "anonymous chatter", "") {
			t.Fatalf("anonymous messages must not be rate limited")
		}
	}
}

func TestInvalidRuleFailsAtLoad(t *testing.T) {
	_, err := NewFilter(zap.NewNop(), 5, time.Minute, nil, `([unclosed`)
	if err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}

type recordingNotifier struct {
	messages []string
	metadata []map[string]string
}

func (n *recordingNotifier) Notify(_ context.Context, message string, metadata map[string]string) {
	n.messages = append(n.messages, message)
	n.metadata = append(n.metadata, metadata)
}

func TestRepeatedSevereFlagsEscalate(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newTestFilter(t, 5, notifier)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if f.Check(ctx, "nothing but hate", "u1") {
			t.Fatalf("banned pattern was allowed")
		}
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("expected one escalation, got %d", len(notifier.messages))
	}
	if notifier.metadata[0]["user_id"] != "u1" {
		t.Fatalf("unexpected escalation metadata: %v", notifier.metadata[0])
	}
}

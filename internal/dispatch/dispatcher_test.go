package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/analytics"
	"github.com/robo-sapien-lab/Simpi/internal/memory"
	"github.com/robo-sapien-lab/Simpi/internal/moderation"
	"github.com/robo-sapien-lab/Simpi/internal/plugin"
	"github.com/robo-sapien-lab/Simpi/internal/sentiment"
	"github.com/robo-sapien-lab/Simpi/internal/store"
)

type fixedPlugin struct {
	name    string
	keyword string
	handle  func(ctx context.Context, message string) (string, error)
}

func (p *fixedPlugin) Name() string { return p.name }

func (p *fixedPlugin) CanHandle(message string) bool {
	return strings.Contains(strings.ToLower(message), p.keyword)
}

func (p *fixedPlugin) HandleMessage(ctx context.Context, message string) (string, error) {
	return p.handle(ctx, message)
}

type testHarness struct {
	dispatcher *Dispatcher
	filter     *moderation.Filter
	memory     *memory.Manager
	engine     *analytics.Engine
	registry   *plugin.Registry
	store      *store.MemoryStore
}

func newHarness(t *testing.T, plugins ...plugin.Plugin) *testHarness {
	t.Helper()
	log := zap.NewNop()
	st := store.NewMemory()

	filter, err := moderation.NewFilter(log, 5, time.Minute, nil)
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	registry := plugin.NewRegistry(log)
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			t.Fatalf("register %s: %v", p.Name(), err)
		}
	}
	mem := memory.NewManager(st, log)
	engine := analytics.NewEngine(st, log)

	return &testHarness{
		dispatcher: New(log, filter, mem, registry, engine, sentiment.NewAnalyzer(), time.Second),
		filter:     filter,
		memory:     mem,
		engine:     engine,
		registry:   registry,
		store:      st,
	}
}

func TestProcessMessageHappyPath(t *testing.T) {
	h := newHarness(t, &fixedPlugin{
		name:    "echo",
		keyword: "golang",
		handle: func(_ context.Context, message string) (string, error) {
			return "you said: " + message, nil
		},
	})
	ctx := context.Background()

	got := h.dispatcher.ProcessMessage(ctx, "u1", "I love golang")
	if got != "you said: I love golang" {
		t.Fatalf("unexpected reply: %q", got)
	}

	history, err := h.memory.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 logged interaction, got %d", len(history))
	}
	if history[0].Prompt != "I love golang" || history[0].Response != got {
		t.Fatalf("unexpected interaction: %+v", history[0])
	}
	if history[0].SentimentScore < 0.05 {
		t.Fatalf("expected positive sentiment score, got %f", history[0].SentimentScore)
	}

	if h.engine.PendingCount() != 1 {
		t.Fatalf("interaction not buffered for analytics")
	}
}

func TestProcessMessageBlockedByModeration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got := h.dispatcher.ProcessMessage(ctx, "u1", "nothing but hate here")
	if got != safetyReply {
		t.Fatalf("expected safety reply, got %q", got)
	}

	// A blocked message is a terminal outcome: no interaction is recorded.
	history, err := h.memory.History(ctx, "u1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("blocked message must not be logged, got %d entries", len(history))
	}
	if h.engine.PendingCount() != 0 {
		t.Fatalf("blocked message must not reach analytics")
	}
	if len(h.filter.Flags()["u1"]) != 1 {
		t.Fatalf("expected one flag for u1")
	}
}

func TestProcessMessageNoHandlerFallsBack(t *testing.T) {
	h := newHarness(t)

	got := h.dispatcher.ProcessMessage(context.Background(), "u1", "completely unrelated question")
	if got != fallbackReply {
		t.Fatalf("expected fallback reply, got %q", got)
	}
}

func TestProcessMessageHandlerErrorYieldsApology(t *testing.T) {
	h := newHarness(t, &fixedPlugin{
		name:    "broken",
		keyword: "golang",
		handle: func(context.Context, string) (string, error) {
			return "", errors.New("internal secret detail")
		},
	})

	got := h.dispatcher.ProcessMessage(context.Background(), "u1", "golang question")
	if got != apologyReply {
		t.Fatalf("expected apology, got %q", got)
	}
	if strings.Contains(got, "secret") {
		t.Fatalf("internal error text leaked to the user: %q", got)
	}
}

func TestProcessMessageHandlerPanicIsContained(t *testing.T) {
	h := newHarness(t, &fixedPlugin{
		name:    "panicky",
		keyword: "golang",
		handle: func(context.Context, string) (string, error) {
			panic("boom")
		},
	})

	// Must not panic through ProcessMessage.
	got := h.dispatcher.ProcessMessage(context.Background(), "u1", "golang question")
	if got != apologyReply {
		t.Fatalf("expected apology after panic, got %q", got)
	}
}

func TestProcessMessageEmptyHandlerReplyFallsBack(t *testing.T) {
	h := newHarness(t, &fixedPlugin{
		name:    "silent",
		keyword: "golang",
		handle: func(context.Context, string) (string, error) {
			return "", nil
		},
	})

	got := h.dispatcher.ProcessMessage(context.Background(), "u1", "golang question")
	if got != fallbackReply {
		t.Fatalf("expected fallback for empty handler reply, got %q", got)
	}
}

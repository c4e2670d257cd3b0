package plugin

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/llm"
	"github.com/robo-sapien-lab/Simpi/internal/memory"
)

type stubPlugin struct {
	name    string
	keyword string
	reply   string
}

func (p *stubPlugin) Name() string { return p.name }

func (p *stubPlugin) CanHandle(message string) bool {
	return strings.Contains(strings.ToLower(message), p.keyword)
}

func (p *stubPlugin) HandleMessage(context.Context, string) (string, error) {
	return p.reply, nil
}

func TestRegistryFirstMatchWins(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	first := &stubPlugin{name: "first", keyword: "code", reply: "from first"}
	second := &stubPlugin{name: "second", keyword: "code", reply: "from second"}

	if err := r.Register(first); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := r.Register(second); err != nil {
		t.Fatalf("register second: %v", err)
	}

	// Both plugins match the keyword; the earlier-registered one is chosen.
	got := r.HandlerFor("help me with this code")
	if got == nil || got.Name() != "first" {
		t.Fatalf("expected first plugin, got %v", got)
	}
}

func TestRegistryNoMatch(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	if err := r.Register(&stubPlugin{name: "p", keyword: "code"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := r.HandlerFor("what's for dinner"); got != nil {
		t.Fatalf("expected no handler, got %s", got.Name())
	}
}

func TestRegistryRejectsDuplicateAndEmptyNames(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	if err := r.Register(&stubPlugin{name: "p", keyword: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&stubPlugin{name: "p", keyword: "b"}); err == nil {
		t.Fatalf("duplicate name should be rejected")
	}
	if err := r.Register(&stubPlugin{name: "", keyword: "c"}); err == nil {
		t.Fatalf("empty name should be rejected")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "p" {
		t.Fatalf("unexpected registry contents: %v", names)
	}
}

func TestProgrammingCanHandle(t *testing.T) {
	p := NewProgramming(nil)

	cases := map[string]bool{
		"How do I write a Python function?": true,
		"my JAVASCRIPT code is broken":      true,
		"what should I cook tonight":        false,
	}
	for msg, want := range cases {
		if got := p.CanHandle(msg); got != want {
			t.Fatalf("CanHandle(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestProgrammingErrorBranchNamesLanguage(t *testing.T) {
	p := NewProgramming(nil)

	reply, err := p.HandleMessage(context.Background(), "I get an error in my python script")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(reply, "python") {
		t.Fatalf("expected detected language in reply, got %q", reply)
	}
}

type stubLLM struct {
	reply    string
	messages []llm.Message
}

func (s *stubLLM) Generate(_ context.Context, messages []llm.Message) (string, error) {
	s.messages = messages
	return s.reply, nil
}

func TestProgrammingReturnsGeneratedReply(t *testing.T) {
	client := &stubLLM{reply: "use sort.Slice"}
	p := NewProgramming(client)

	reply, err := p.HandleMessage(context.Background(), "how do I sort a slice in my code")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if reply != "use sort.Slice" {
		t.Fatalf("generated reply not passed through, got %q", reply)
	}
	if len(client.messages) != 2 || client.messages[0].Role != "system" {
		t.Fatalf("unexpected conversation: %+v", client.messages)
	}
}

func TestProgrammingPromptCarriesPreferences(t *testing.T) {
	client := &stubLLM{reply: "ok"}
	p := NewProgramming(client)

	user := memory.Context{Preferences: &memory.UserPreference{
		ExpertiseLevel: "beginner",
		PreferredTone:  "casual",
	}}
	if _, err := p.HandleWithContext(context.Background(), "explain this algorithm", user); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	system := client.messages[0].Content
	if !strings.Contains(system, "beginner") || !strings.Contains(system, "casual") {
		t.Fatalf("preferences missing from system prompt: %q", system)
	}
}

func TestRelationshipsCrisisShortCircuits(t *testing.T) {
	p := NewRelationships(nil)

	if !p.CanHandle("my partner and I keep fighting") {
		t.Fatalf("relationship message not claimed")
	}

	reply, err := p.HandleMessage(context.Background(), "my partner threatened to hurt me")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(reply, "988") {
		t.Fatalf("crisis reply should list the hotline, got %q", reply)
	}
}

package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/robo-sapien-lab/Simpi/internal/llm"
)

var relationshipKeywords = []string{
	"relationship", "dating", "partner", "marriage",
	"boyfriend", "girlfriend", "spouse", "breakup",
}

var crisisKeywords = []string{"suicide", "hurt", "abuse", "violence"}

var advicePhrases = []string{"should i", "what should", "how do i"}

const crisisResponse = "I notice this might be a serious situation. Please remember:\n\n" +
	"1. Your safety is the top priority\n" +
	"2. Contact emergency services if you're in danger\n" +
	"3. National Crisis Hotline: 988\n" +
	"4. Consider speaking with a professional counselor\n\n" +
	"Would you like me to provide more specific resources?"

// Relationships answers relationship-advice questions. Crisis messages get
// a fixed resource list and never go to the LLM.
type Relationships struct {
	llm llm.Client
}

func NewRelationships(client llm.Client) *Relationships {
	return &Relationships{llm: client}
}

func (p *Relationships) Name() string { return "relationships" }

func (p *Relationships) CanHandle(message string) bool {
	lowered := strings.ToLower(message)
	for _, kw := range relationshipKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (p *Relationships) HandleMessage(ctx context.Context, message string) (string, error) {
	lowered := strings.ToLower(message)

	for _, kw := range crisisKeywords {
		if strings.Contains(lowered, kw) {
			return crisisResponse, nil
		}
	}

	if p.llm == nil {
		if containsAny(lowered, advicePhrases) {
			return "I understand you're looking for relationship advice. Let me help you think through this...", nil
		}
		return "I hear you talking about your relationship. Would you like to tell me more about the situation?", nil
	}

	system := "You are a thoughtful relationship counselor. Be empathetic, avoid taking sides, and never give medical or legal advice."
	if containsAny(lowered, advicePhrases) {
		system += " The user is asking for concrete advice; lay out options and trade-offs."
	}

	reply, err := p.llm.Generate(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: message},
	})
	if err != nil {
		return "", fmt.Errorf("generate relationship answer: %w", err)
	}
	return reply, nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

package plugin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/robo-sapien-lab/Simpi/internal/llm"
	"github.com/robo-sapien-lab/Simpi/internal/memory"
)

var programmingKeywords = []string{
	"python", "javascript", "java", "c++", "code",
	"programming", "function", "class", "algorithm",
}

type langPattern struct {
	name    string
	pattern *regexp.Regexp
}

var langPatterns = []langPattern{
	{"python", regexp.MustCompile(`\b(python|py)\b`)},
	{"javascript", regexp.MustCompile(`\b(javascript|js)\b`)},
	{"java", regexp.MustCompile(`\bjava\b`)},
	{"c++", regexp.MustCompile(`\b(c\+\+|cpp)\b`)},
}

// Programming answers programming questions. With an LLM client it
// generates answers; without one it falls back to canned guidance.
type Programming struct {
	llm llm.Client
}

func NewProgramming(client llm.Client) *Programming {
	return &Programming{llm: client}
}

func (p *Programming) Name() string { return "learn_programming" }

func (p *Programming) CanHandle(message string) bool {
	lowered := strings.ToLower(message)
	for _, kw := range programmingKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (p *Programming) HandleMessage(ctx context.Context, message string) (string, error) {
	return p.HandleWithContext(ctx, message, memory.Context{})
}

// HandleWithContext tailors the answer to the sender's stored expertise
// level and preferred tone when available.
func (p *Programming) HandleWithContext(ctx context.Context, message string, user memory.Context) (string, error) {
	lang := detectLanguage(message)
	lowered := strings.ToLower(message)

	if strings.Contains(lowered, "error") {
		return fmt.Sprintf("I see you're having an error in %s. Could you share the error message?", langOrCode(lang)), nil
	}

	if p.llm == nil {
		if strings.Contains(lowered, "how") {
			return fmt.Sprintf("I can help you learn how to do that in %s. Let me break it down...", langOrCode(lang)), nil
		}
		return "I'll help you with your programming question...", nil
	}

	system := "You are a patient programming tutor. Answer concisely and include a short code example when it helps."
	if lang != "" {
		system += " The question is about " + lang + "."
	}
	if pref := user.Preferences; pref != nil {
		if pref.ExpertiseLevel != "" {
			system += " The user's expertise level is " + pref.ExpertiseLevel + "."
		}
		if pref.PreferredTone != "" {
			system += " Keep a " + pref.PreferredTone + " tone."
		}
	}

	reply, err := p.llm.Generate(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: message},
	})
	if err != nil {
		return "", fmt.Errorf("generate programming answer: %w", err)
	}
	return reply, nil
}

func detectLanguage(message string) string {
	lowered := strings.ToLower(message)
	for _, lp := range langPatterns {
		if lp.pattern.MatchString(lowered) {
			return lp.name
		}
	}
	return ""
}

func langOrCode(lang string) string {
	if lang == "" {
		return "your code"
	}
	return lang
}

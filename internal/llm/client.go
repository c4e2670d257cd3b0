package llm

import "context"

type Message struct {
	Role    string
	Content string
}

// Client generates a reply for a conversation. Plugins only consume the
// text; provider metadata stays inside the implementations.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

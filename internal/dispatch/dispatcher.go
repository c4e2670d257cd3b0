package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/analytics"
	"github.com/robo-sapien-lab/Simpi/internal/memory"
	"github.com/robo-sapien-lab/Simpi/internal/moderation"
	"github.com/robo-sapien-lab/Simpi/internal/plugin"
	"github.com/robo-sapien-lab/Simpi/internal/sentiment"
)

// Fixed user-facing replies. Internal error text never reaches the user.
const (
	safetyReply   = "Your message wasn't processed because it goes against our content guidelines."
	fallbackReply = "I'm not sure how to help with that yet, but I'm always learning new topics."
	apologyReply  = "Sorry, something went wrong while answering. Please try again."
)

// Dispatcher runs the per-message pipeline: moderation, context fetch,
// handler selection, timed invocation, and interaction recording.
type Dispatcher struct {
	log       *zap.Logger
	filter    *moderation.Filter
	memory    *memory.Manager
	registry  *plugin.Registry
	analytics *analytics.Engine
	sentiment *sentiment.Analyzer
	timeout   time.Duration
}

func New(
	log *zap.Logger,
	filter *moderation.Filter,
	mem *memory.Manager,
	registry *plugin.Registry,
	engine *analytics.Engine,
	analyzer *sentiment.Analyzer,
	timeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		log:       log,
		filter:    filter,
		memory:    mem,
		registry:  registry,
		analytics: engine,
		sentiment: analyzer,
		timeout:   timeout,
	}
}

// ProcessMessage takes a raw inbound message and returns the reply text.
// A moderation block terminates the pipeline with the safety reply and
// records no interaction. Everything past moderation degrades: store
// failures mean empty context, a failing handler means the apology reply.
func (d *Dispatcher) ProcessMessage(ctx context.Context, userID, message string) string {
	if !d.filter.Check(ctx, message, userID) {
		d.log.Info("message blocked", zap.String("user_id", userID))
		return safetyReply
	}

	userCtx := d.memory.Context(ctx, userID)

	handler := d.registry.HandlerFor(message)

	start := time.Now()
	response, err := d.invoke(ctx, handler, message, userCtx)
	elapsed := time.Since(start)
	if err != nil {
		name := "none"
		if handler != nil {
			name = handler.Name()
		}
		d.log.Error("handler failed", zap.String("plugin", name), zap.Error(err))
		response = apologyReply
	}
	if response == "" {
		response = fallbackReply
	}

	score, category := d.sentiment.Analyze(message)

	it := memory.Interaction{
		Timestamp:      time.Now(),
		UserID:         userID,
		Prompt:         message,
		Response:       response,
		ResponseTime:   elapsed,
		SentimentScore: score,
	}
	if err := d.memory.LogInteraction(ctx, userID, it); err != nil {
		d.log.Error("log interaction", zap.Error(err), zap.String("user_id", userID))
	}
	d.analytics.Record(ctx, it)

	d.log.Debug("message processed",
		zap.String("user_id", userID),
		zap.Duration("elapsed", elapsed),
		zap.String("sentiment", string(category)))

	return response
}

// invoke runs the selected handler with panic containment and the call
// timeout. A misbehaving plugin must never take down the dispatch loop.
func (d *Dispatcher) invoke(ctx context.Context, p plugin.Plugin, message string, userCtx memory.Context) (response string, err error) {
	if p == nil {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin panicked: %v", r)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if aware, ok := p.(plugin.ContextAware); ok {
		return aware.HandleWithContext(ctx, message, userCtx)
	}
	return p.HandleMessage(ctx, message)
}

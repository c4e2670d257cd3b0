package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/memory"
)

// Plugin is a topic-specific responder. Implementations must be stateless
// or otherwise safe for concurrent invocation across users.
type Plugin interface {
	// Name must be unique and non-empty.
	Name() string
	// CanHandle reports whether the plugin wants the message.
	CanHandle(message string) bool
	// HandleMessage produces a reply. An empty reply with a nil error tells
	// the caller to use its generic fallback.
	HandleMessage(ctx context.Context, message string) (string, error)
}

// ContextAware is an optional capability: plugins that want the sender's
// stored context implement it in addition to Plugin.
type ContextAware interface {
	HandleWithContext(ctx context.Context, message string, user memory.Context) (string, error)
}

// Registry routes messages to plugins in registration order. Register
// everything at startup; Register is not safe for concurrent use with
// HandlerFor.
type Registry struct {
	log    *zap.Logger
	order  []Plugin
	byName map[string]Plugin
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log, byName: make(map[string]Plugin)}
}

// Register appends p to the routing order. A duplicate name is an error:
// with a static registration list the caller should hear about the conflict
// instead of silently losing a handler.
func (r *Registry) Register(p Plugin) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("duplicate plugin name %q", name)
	}
	r.byName[name] = p
	r.order = append(r.order, p)
	r.log.Info("registered plugin", zap.String("plugin", name))
	return nil
}

// HandlerFor returns the first plugin in registration order whose CanHandle
// accepts the message, or nil when none match. First-match routing is
// enough because plugin domains are topically disjoint.
func (r *Registry) HandlerFor(message string) Plugin {
	for _, p := range r.order {
		if p.CanHandle(message) {
			return p
		}
	}
	return nil
}

// Names lists registered plugins in routing order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, p := range r.order {
		names = append(names, p.Name())
	}
	return names
}

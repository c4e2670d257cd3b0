package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/store"
)

// historyLimit caps a user's recent-interaction list; the oldest entries
// are evicted first.
const historyLimit = 100

// recentContextSize is how many trailing interactions are handed to plugins
// as conversational context.
const recentContextSize = 5

// UserPreference holds a user's settings. Records are replaced wholesale on
// update, never merged.
type UserPreference struct {
	TopicInterests []string  `json:"topic_interests"`
	ExpertiseLevel string    `json:"expertise_level"`
	PreferredTone  string    `json:"preferred_tone"`
	LastUpdated    time.Time `json:"last_updated"`
}

// SavedQA is a user-saved question/answer pair. Entries are append-only;
// the use counter is mutated by whoever replays the answer, not by the
// store.
type SavedQA struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	Uses      int       `json:"uses"`
}

// Interaction is one logged exchange. Immutable once created.
type Interaction struct {
	Timestamp      time.Time     `json:"timestamp"`
	UserID         string        `json:"user_id"`
	Prompt         string        `json:"prompt"`
	Response       string        `json:"response"`
	ResponseTime   time.Duration `json:"response_time"`
	Upvotes        int           `json:"upvotes,omitempty"`
	SentimentScore float64       `json:"sentiment_score,omitempty"`
}

// Context is everything the bot knows about a user at dispatch time.
type Context struct {
	Preferences *UserPreference
	SavedQAs    []SavedQA
	Recent      []Interaction
}

// Manager reads and writes per-user context through the key-value store.
type Manager struct {
	store store.Store
	log   *zap.Logger
}

func NewManager(st store.Store, log *zap.Logger) *Manager {
	return &Manager{store: st, log: log}
}

func prefsKey(userID string) string        { return "prefs:" + userID }
func qaKey(userID string) string           { return "faqs:" + userID }
func interactionsKey(userID string) string { return "interactions:" + userID }

// Context assembles the user's stored context. Every part degrades
// independently: a store failure yields the empty value for that part, never
// an error to the caller.
func (m *Manager) Context(ctx context.Context, userID string) Context {
	out := Context{}

	raw, err := m.store.Get(ctx, prefsKey(userID))
	switch {
	case err == nil:
		var pref UserPreference
		if err := json.Unmarshal([]byte(raw), &pref); err != nil {
			m.log.Error("decode preferences", zap.Error(err), zap.String("user_id", userID))
		} else {
			out.Preferences = &pref
		}
	case !errors.Is(err, store.ErrNotFound):
		m.log.Error("get preferences", zap.Error(err), zap.String("user_id", userID))
	}

	rawQAs, err := m.store.ListRange(ctx, qaKey(userID), 0, -1)
	if err != nil {
		m.log.Error("get saved QAs", zap.Error(err), zap.String("user_id", userID))
	}
	for _, r := range rawQAs {
		var qa SavedQA
		if err := json.Unmarshal([]byte(r), &qa); err != nil {
			m.log.Error("decode saved QA", zap.Error(err), zap.String("user_id", userID))
			continue
		}
		out.SavedQAs = append(out.SavedQAs, qa)
	}

	rawRecent, err := m.store.ListRange(ctx, interactionsKey(userID), -recentContextSize, -1)
	if err != nil {
		m.log.Error("get recent interactions", zap.Error(err), zap.String("user_id", userID))
	}
	for _, r := range rawRecent {
		var it Interaction
		if err := json.Unmarshal([]byte(r), &it); err != nil {
			m.log.Error("decode interaction", zap.Error(err), zap.String("user_id", userID))
			continue
		}
		out.Recent = append(out.Recent, it)
	}

	return out
}

// UpdatePreferences overwrites the user's preference record. LastUpdated is
// forced to be non-decreasing: a stale or zero timestamp is replaced with
// the current time.
func (m *Manager) UpdatePreferences(ctx context.Context, userID string, pref UserPreference) error {
	if now := time.Now(); pref.LastUpdated.Before(now) {
		pref.LastUpdated = now
	}
	raw, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := m.store.Set(ctx, prefsKey(userID), string(raw), 0); err != nil {
		return fmt.Errorf("store preferences: %w", err)
	}
	return nil
}

// SaveQA appends a question/answer pair to the user's saved list.
func (m *Manager) SaveQA(ctx context.Context, userID, question, answer string) error {
	qa := SavedQA{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(qa)
	if err != nil {
		return fmt.Errorf("encode saved QA: %w", err)
	}
	if err := m.store.ListAppend(ctx, qaKey(userID), string(raw)); err != nil {
		return fmt.Errorf("store saved QA: %w", err)
	}
	return nil
}

// LogInteraction appends one interaction to the user's history and trims it
// to the most recent entries.
func (m *Manager) LogInteraction(ctx context.Context, userID string, it Interaction) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	key := interactionsKey(userID)
	if err := m.store.ListAppend(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	if err := m.store.ListTrim(ctx, key, -historyLimit, -1); err != nil {
		return fmt.Errorf("trim interactions: %w", err)
	}
	return nil
}

// History returns the user's full retained interaction history, oldest
// first.
func (m *Manager) History(ctx context.Context, userID string) ([]Interaction, error) {
	raws, err := m.store.ListRange(ctx, interactionsKey(userID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]Interaction, 0, len(raws))
	for _, r := range raws {
		var it Interaction
		if err := json.Unmarshal([]byte(r), &it); err != nil {
			m.log.Error("decode interaction", zap.Error(err), zap.String("user_id", userID))
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

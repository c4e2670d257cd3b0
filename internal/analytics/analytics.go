package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/memory"
	"github.com/robo-sapien-lab/Simpi/internal/store"
)

const (
	interactionsKey      = "analytics:interactions"
	responseTimesKey     = "metrics:response_times"
	interactionCountsKey = "metrics:user_interactions"
)

const (
	// trendWindow is how many of the most recent persisted interactions feed
	// the trending computation.
	trendWindow = 1000
	// trendSize caps the trending snapshot.
	trendSize = 10
	// minTopicLen filters out short filler tokens.
	minTopicLen = 4
)

// TopicCount is one trending-topics entry.
type TopicCount struct {
	Topic string
	Count int
}

// UserMetrics are lifetime totals; the counters are cumulative and never
// reset or decayed.
type UserMetrics struct {
	TotalResponseTime time.Duration
	InteractionCount  int64
}

// AvgResponseTime derives the mean from the lifetime totals.
func (m UserMetrics) AvgResponseTime() time.Duration {
	if m.InteractionCount == 0 {
		return 0
	}
	return m.TotalResponseTime / time.Duration(m.InteractionCount)
}

// Engine aggregates dispatch outcomes. Record is called inline per message;
// PersistPending and RecomputeTrending run as periodic jobs.
type Engine struct {
	store store.Store
	log   *zap.Logger

	// flushMu serializes PersistPending: the interval tick and a failure
	// retry may fire at the same moment, and two flushes draining the same
	// batch would double-append and over-shrink the buffer.
	flushMu sync.Mutex

	mu       sync.Mutex
	pending  []memory.Interaction
	trending []TopicCount
}

func NewEngine(st store.Store, log *zap.Logger) *Engine {
	return &Engine{store: st, log: log}
}

// Record buffers the interaction for the next persist cycle and bumps the
// user's cumulative counters. Counter updates are best-effort: a store
// failure skips the metric but keeps the interaction buffered.
func (e *Engine) Record(ctx context.Context, it memory.Interaction) {
	e.mu.Lock()
	e.pending = append(e.pending, it)
	e.mu.Unlock()

	if _, err := e.store.HashIncrBy(ctx, responseTimesKey, it.UserID, it.ResponseTime.Milliseconds()); err != nil {
		e.log.Error("update response time metric", zap.Error(err), zap.String("user_id", it.UserID))
	}
	if _, err := e.store.HashIncrBy(ctx, interactionCountsKey, it.UserID, 1); err != nil {
		e.log.Error("update interaction count", zap.Error(err), zap.String("user_id", it.UserID))
	}
}

// PendingCount reports how many interactions await the next flush.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// PersistPending appends all buffered interactions to durable storage as a
// single batch and drops them from the buffer. On failure the buffer stays
// intact for the next cycle, so records are delivered at least once.
func (e *Engine) PersistPending(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	batch := e.pending
	e.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	values := make([]string, 0, len(batch))
	for _, it := range batch {
		raw, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode interaction: %w", err)
		}
		values = append(values, string(raw))
	}
	if err := e.store.ListAppend(ctx, interactionsKey, values...); err != nil {
		return fmt.Errorf("persist interactions: %w", err)
	}

	// Only drop what was flushed; records buffered during the append stay.
	e.mu.Lock()
	e.pending = e.pending[len(batch):]
	e.mu.Unlock()

	e.log.Info("persisted interactions", zap.Int("count", len(batch)))
	return nil
}

// RecomputeTrending rebuilds the trending snapshot from the most recent
// persisted interactions: prompts are whitespace-tokenized, short tokens
// dropped, and the top entries kept by count. Ties keep the order tokens
// were first seen in, so repeated runs over the same data are stable. The
// snapshot is fully replaced, never merged.
func (e *Engine) RecomputeTrending(ctx context.Context) error {
	raws, err := e.store.ListRange(ctx, interactionsKey, -trendWindow, -1)
	if err != nil {
		return fmt.Errorf("load recent interactions: %w", err)
	}

	counts := make(map[string]int)
	var order []string
	for _, raw := range raws {
		var it memory.Interaction
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			e.log.Error("decode persisted interaction", zap.Error(err))
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(it.Prompt)) {
			if len(word) < minTopicLen {
				continue
			}
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	topics := make([]TopicCount, 0, len(order))
	for _, w := range order {
		topics = append(topics, TopicCount{Topic: w, Count: counts[w]})
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Count > topics[j].Count })
	if len(topics) > trendSize {
		topics = topics[:trendSize]
	}

	e.mu.Lock()
	e.trending = topics
	e.mu.Unlock()

	e.log.Info("recomputed trending topics", zap.Int("topics", len(topics)), zap.Int("window", len(raws)))
	return nil
}

// TrendingTopics returns the current snapshot, highest count first.
func (e *Engine) TrendingTopics() []TopicCount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TopicCount(nil), e.trending...)
}

// UserMetricsFor reads the user's cumulative counters, zero when absent.
func (e *Engine) UserMetricsFor(ctx context.Context, userID string) (UserMetrics, error) {
	sumMS, err := e.hashInt(ctx, responseTimesKey, userID)
	if err != nil {
		return UserMetrics{}, fmt.Errorf("read response time metric: %w", err)
	}
	count, err := e.hashInt(ctx, interactionCountsKey, userID)
	if err != nil {
		return UserMetrics{}, fmt.Errorf("read interaction count: %w", err)
	}
	return UserMetrics{
		TotalResponseTime: time.Duration(sumMS) * time.Millisecond,
		InteractionCount:  count,
	}, nil
}

func (e *Engine) hashInt(ctx context.Context, key, field string) (int64, error) {
	raw, err := e.store.HashGet(ctx, key, field)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

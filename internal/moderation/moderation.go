package moderation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AnonymousUser buckets flags raised for unauthenticated content.
const AnonymousUser = "anonymous"

// severeFlagEscalation is the number of severity-2 flags after which a user
// is reported to the notification channel.
const severeFlagEscalation = 3

const (
	ReasonBlockedPattern = "blocked_pattern"
	ReasonSpam           = "spam"
)

// ContentFlag records one moderation concern. Flags accumulate per user and
// are never deleted; they are the audit trail.
type ContentFlag struct {
	Reason   string `json:"reason"`
	Severity int    `json:"severity"` // 1 = soft, 2 = hard
	Context  string `json:"context"`
}

// Notifier delivers escalation notices to an external channel. Delivery is
// best-effort; implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string, metadata map[string]string)
}

var defaultRules = []string{
	`\b(hate|abuse|violence)\b`,
	`(^|\s)spam(\s|$)`,
}

// Filter evaluates messages against banned-content rules and a per-user
// rate limit. All state is guarded by a single mutex; Check is safe to call
// from any goroutine.
type Filter struct {
	log           *zap.Logger
	rules         []*regexp.Regexp
	spamThreshold int
	cooldown      time.Duration
	notifier      Notifier

	mu           sync.Mutex
	messageCount map[string]int
	resetAt      map[string]time.Time
	flagged      map[string][]ContentFlag
}

// NewFilter compiles the rule set. An invalid pattern is a configuration
// error and fails construction; nothing is validated per message.
func NewFilter(log *zap.Logger, spamThreshold int, cooldown time.Duration, notifier Notifier, extraRules ...string) (*Filter, error) {
	patterns := append(append([]string{}, defaultRules...), extraRules...)
	rules := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid moderation rule %q: %w", p, err)
		}
		rules = append(rules, re)
	}
	return &Filter{
		log:           log,
		rules:         rules,
		spamThreshold: spamThreshold,
		cooldown:      cooldown,
		notifier:      notifier,
		messageCount:  make(map[string]int),
		resetAt:       make(map[string]time.Time),
		flagged:       make(map[string][]ContentFlag),
	}, nil
}

// Check reports whether content is safe to process. A banned-pattern match
// or a spam-rate violation blocks the message and records a flag. An empty
// userID skips the rate limit; pattern flags for it land in the anonymous
// bucket.
func (f *Filter) Check(ctx context.Context, content, userID string) bool {
	lowered := strings.ToLower(content)
	for _, rule := range f.rules {
		if rule.MatchString(lowered) {
			f.flag(ctx, userID, ReasonBlockedPattern, 2, rule.String())
			return false
		}
	}

	if userID != "" && f.countMessage(userID) {
		f.flag(ctx, userID, ReasonSpam, 1, "frequent_messages")
		return false
	}
	return true
}

// countMessage increments the user's counter and reports whether the count
// before the increment had already reached the threshold. Allowed calls arm
// the cooldown deadline consumed by Sweep.
func (f *Filter) countMessage(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.messageCount[userID]
	f.messageCount[userID] = current + 1
	if current >= f.spamThreshold {
		return true
	}
	f.resetAt[userID] = time.Now().Add(f.cooldown)
	return false
}

// Sweep resets counters whose cooldown deadline has passed. It is scheduled
// periodically instead of arming a timer per message; resetting to zero is
// idempotent, so an extra sweep is harmless.
func (f *Filter) Sweep() {
	f.sweep(time.Now())
}

func (f *Filter) sweep(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for userID, deadline := range f.resetAt {
		if !deadline.After(now) {
			delete(f.messageCount, userID)
			delete(f.resetAt, userID)
		}
	}
}

func (f *Filter) flag(ctx context.Context, userID, reason string, severity int, ruleContext string) {
	if userID == "" {
		userID = AnonymousUser
	}

	f.mu.Lock()
	f.flagged[userID] = append(f.flagged[userID], ContentFlag{
		Reason:   reason,
		Severity: severity,
		Context:  ruleContext,
	})
	severe := 0
	for _, fl := range f.flagged[userID] {
		if fl.Severity >= 2 {
			severe++
		}
	}
	f.mu.Unlock()

	f.log.Warn("content flagged",
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.Int("severity", severity))

	if severity >= 2 && severe >= severeFlagEscalation && f.notifier != nil {
		f.notifier.Notify(ctx, "repeated severe content flags", map[string]string{
			"user_id":      userID,
			"reason":       reason,
			"severe_flags": strconv.Itoa(severe),
		})
	}
}

// Flags returns a copy of every recorded flag keyed by user id.
func (f *Filter) Flags() map[string][]ContentFlag {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]ContentFlag, len(f.flagged))
	for userID, flags := range f.flagged {
		out[userID] = append([]ContentFlag(nil), flags...)
	}
	return out
}

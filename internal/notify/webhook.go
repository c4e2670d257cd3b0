package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// WebhookNotifier posts structured notifications to Slack and Discord
// incoming webhooks. Delivery failures are logged, never retried, and never
// surface to the caller.
type WebhookNotifier struct {
	log        *zap.Logger
	httpClient *http.Client
	slackURL   string
	discordURL string
}

func NewWebhook(log *zap.Logger, slackURL, discordURL string) *WebhookNotifier {
	return &WebhookNotifier{
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		slackURL:   slackURL,
		discordURL: discordURL,
	}
}

// Notify fans the message out to every configured webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, message string, metadata map[string]string) {
	if n.slackURL != "" {
		if err := n.post(ctx, n.slackURL, slackPayload(message, metadata), http.StatusOK); err != nil {
			n.log.Error("slack notification failed", zap.Error(err))
		}
	}
	if n.discordURL != "" {
		if err := n.post(ctx, n.discordURL, discordPayload(message, metadata), http.StatusNoContent); err != nil {
			n.log.Error("discord notification failed", zap.Error(err))
		}
	}
}

func (n *WebhookNotifier) post(ctx context.Context, url string, payload any, wantStatus int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("unexpected webhook status %d", resp.StatusCode)
	}
	return nil
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func slackPayload(message string, metadata map[string]string) any {
	fields := make([]slackField, 0, len(metadata))
	for _, k := range sortedKeys(metadata) {
		fields = append(fields, slackField{Title: k, Value: metadata[k], Short: true})
	}
	return map[string]any{
		"text": message,
		"attachments": []map[string]any{
			{"fields": fields},
		},
	}
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func discordPayload(message string, metadata map[string]string) any {
	fields := make([]discordField, 0, len(metadata))
	for _, k := range sortedKeys(metadata) {
		fields = append(fields, discordField{Name: k, Value: metadata[k], Inline: true})
	}
	return map[string]any{
		"embeds": []map[string]any{
			{
				"title":       "Bot Notification",
				"description": message,
				"fields":      fields,
			},
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/health"
)

// Notification carries one pool's alert context for a cycle.
type Notification struct {
	PoolID   string         `json:"pool_id"`
	PoolName string         `json:"pool_name"`
	Status   health.Status  `json:"status"`
	Issues   []health.Issue `json:"issues"`
	CycleAt  time.Time      `json:"cycle_at"`
}

// Notifier delivers notifications to an external channel. Delivery is
// fire-and-forget from the service's perspective; a failed send never
// blocks or aborts a cycle.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// WebhookNotifier POSTs notifications as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier constructs the webhook alert channel.
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Notify posts the payload and checks for a 2xx response.
func (n *WebhookNotifier) Notify(ctx context.Context, note Notification) error {
	if n.url == "" {
		return fmt.Errorf("webhook url not configured")
	}

	body, err := json.Marshal(webhookPayload{
		Text:         renderMessage(note),
		Notification: note,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}

	n.logger.Info().
		Str("pool_id", note.PoolID).
		Str("status", string(note.Status)).
		Int("issues", len(note.Issues)).
		Msg("alert delivered")
	return nil
}

type webhookPayload struct {
	Text         string       `json:"text"`
	Notification Notification `json:"notification"`
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Pool Health Alert]\n")
	builder.WriteString(fmt.Sprintf("Pool: %s (%s)\n", note.PoolName, note.PoolID))
	builder.WriteString(fmt.Sprintf("Status: %s\n", note.Status))
	builder.WriteString(fmt.Sprintf("Cycle: %s UTC\n", note.CycleAt.UTC().Format(time.RFC3339)))
	for _, issue := range note.Issues {
		builder.WriteString(fmt.Sprintf("- [%s] %s: %s\n", issue.Severity, issue.Kind, issue.Detail))
	}
	return builder.String()
}

var _ Notifier = (*WebhookNotifier)(nil)

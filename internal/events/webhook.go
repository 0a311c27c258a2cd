package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"
)

// Poster delivers a request body to url and returns the response status.
type Poster interface {
	Post(ctx context.Context, url string, header http.Header, body []byte) (int, error)
}

// WebhookNotifier posts every event, signed with Secret, to URL. An empty
// Topics list subscribes to all topics.
type WebhookNotifier struct {
	URL    string
	Secret string
	Topics []string
	Client Poster
	Now    func() time.Time
}

type webhookPayload struct {
	EventID     string          `json:"eventId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Data        json.RawMessage `json:"data"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Notify delivers ev. Non-2xx responses are reported as errors.
func (n *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	if n == nil || n.URL == "" || n.Client == nil {
		return nil
	}
	if len(n.Topics) > 0 && !slices.Contains(n.Topics, ev.Topic) {
		return nil
	}
	body, err := json.Marshal(webhookPayload{
		EventID:     ev.ID,
		Topic:       ev.Topic,
		AggregateID: ev.AggregateID,
		Data:        ev.Payload,
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	ts := now().Unix()
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", "backend-inventory-webhooks/1.0")
	header.Set("X-Event-ID", ev.ID)
	header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	header.Set("X-Signature", Sign(n.Secret, ts, ev.ID, body))

	status, err := n.Client.Post(ctx, n.URL, header, body)
	if err != nil {
		return fmt.Errorf("webhook: deliver %s: %w", ev.ID, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("webhook: deliver %s: status %d", ev.ID, status)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of "<ts>.<eventID>.<body>" keyed by secret.
func Sign(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s.", ts, eventID)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

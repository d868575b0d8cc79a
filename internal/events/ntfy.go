package events

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediabutler/internal/config"
)

const userAgent = "MediaButler/0.1.0"

// NewNtfySink builds a webhook sink backed by ntfy when a topic is
// configured; otherwise a noop sink is returned.
func NewNtfySink(cfg *config.Config) Sink {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return NopSink{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfySink{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Kind]bool{
			ClassificationCompleted:  cfg.Notifications.Classification,
			BatchStarted:             cfg.Notifications.Batches,
			BatchCompleted:           cfg.Notifications.Batches,
			BatchCancelled:           cfg.Notifications.Batches,
			ErrorMoveFailed:          cfg.Notifications.Errors,
			ErrorClassificationFault: cfg.Notifications.Errors,
		},
	}
}

type ntfySink struct {
	endpoint string
	client   *http.Client
	enabled  map[Kind]bool
}

func (n *ntfySink) Publish(ctx context.Context, event Event) error {
	if !n.enabled[event.Kind] {
		return nil
	}
	title, message, tags := renderEvent(event)
	if message == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Title", title)
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

func renderEvent(event Event) (title, message string, tags []string) {
	str := func(key string) string {
		value, _ := event.Payload[key].(string)
		return value
	}
	switch event.Kind {
	case ClassificationCompleted:
		title = "MediaButler - Classified"
		message = fmt.Sprintf("Classified %s as %s", shortHash(str("hash")), str("category"))
		tags = []string{"mediabutler", "classify"}
	case BatchStarted:
		title = "MediaButler - Batch Started"
		message = fmt.Sprintf("Batch %s started (%v files)", str("batch_id"), event.Payload["total"])
		tags = []string{"mediabutler", "batch"}
	case BatchCompleted:
		title = "MediaButler - Batch Complete"
		message = fmt.Sprintf("Batch %s finished: %v moved, %v failed", str("batch_id"), event.Payload["completed"], event.Payload["failed"])
		tags = []string{"mediabutler", "batch", "completed"}
	case BatchCancelled:
		title = "MediaButler - Batch Cancelled"
		message = fmt.Sprintf("Batch %s cancelled", str("batch_id"))
		tags = []string{"mediabutler", "batch"}
	case ErrorMoveFailed:
		title = "MediaButler - Move Failed"
		message = fmt.Sprintf("Move failed for %s: %s", shortHash(str("hash")), str("reason"))
		tags = []string{"mediabutler", "error"}
	case ErrorClassificationFault:
		title = "MediaButler - Classification Failed"
		message = fmt.Sprintf("Classification failed for %s: %s", shortHash(str("hash")), str("reason"))
		tags = []string{"mediabutler", "error"}
	}
	return title, message, tags
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

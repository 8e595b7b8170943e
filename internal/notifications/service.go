package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipeforge/internal/config"
)

const userAgent = "recipeforge/0.1.0"

// Event identifies a pipeline milestone worth pushing to an operator.
type Event string

const (
	EventGenerateJobFinished  Event = "generate_job_finished"
	EventTranslationExhausted Event = "translation_exhausted"
	EventCollectionPublished  Event = "collection_published"
	EventCollectionOrphaned   Event = "collection_orphaned"
	EventError                Event = "error"
	EventTest                 Event = "test"
)

// Payload carries event-specific fields.
type Payload map[string]any

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventGenerateJobFinished:  cfg.Notifications.JobCompleted,
			EventTranslationExhausted: cfg.Notifications.Errors,
			EventCollectionPublished:  cfg.Notifications.CollectionPublished,
			EventCollectionOrphaned:   cfg.Notifications.CollectionPublished,
			EventError:                cfg.Notifications.Errors,
			EventTest:                 true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventGenerateJobFinished:
		status := text(payload, "status")
		msg := message{
			title: "Recipeforge - Generation " + titleCase(status),
			body: fmt.Sprintf("Job %s finished %s: %d succeeded, %d failed of %d",
				text(payload, "jobId"), status, number(payload, "success"), number(payload, "failed"), number(payload, "total")),
			tags: []string{"recipeforge", "generate", status},
		}
		if status == "failed" {
			msg.priority = "high"
		}
		return msg, true
	case EventTranslationExhausted:
		return message{
			title: "Recipeforge - Translation Failed",
			body: fmt.Sprintf("%s %s → %s failed after %d retries: %s",
				text(payload, "entityType"), text(payload, "entityId"), text(payload, "targetLang"),
				number(payload, "retries"), text(payload, "error")),
			tags:     []string{"recipeforge", "translate", "failed"},
			priority: "high",
		}, true
	case EventCollectionPublished:
		body := fmt.Sprintf("Published: %s (%d recipes)", text(payload, "title"), number(payload, "published"))
		tags := []string{"recipeforge", "collection", "published"}
		if qualified, _ := payload["qualified"].(bool); !qualified {
			body += "\nBelow the minimum of " + fmt.Sprint(number(payload, "minRequired"))
			tags = append(tags, "warning")
		}
		return message{title: "Recipeforge - Collection Published", body: body, tags: tags}, true
	case EventCollectionOrphaned:
		return message{
			title: "Recipeforge - Collections Orphaned",
			body: fmt.Sprintf("Deleting %s %s returned %d collections to draft",
				text(payload, "entityType"), text(payload, "name"), number(payload, "count")),
			tags: []string{"recipeforge", "collection", "orphaned"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := text(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := text(payload, "error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Recipeforge - Error",
			body:     builder.String(),
			tags:     []string{"recipeforge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Recipeforge - Test",
			body:     "Notification system test",
			tags:     []string{"recipeforge", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func text(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func number(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func titleCase(value string) string {
	if value == "" {
		return ""
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

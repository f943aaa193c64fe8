package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"soundcheck/internal/config"
)

const userAgent = "Soundcheck/0.1.0"

// Event identifies a notification-worthy workflow moment.
type Event string

const (
	EventFetchCompleted    Event = "fetch_completed"
	EventAnalysisCompleted Event = "analysis_completed"
	EventProfileUpdated    Event = "profile_updated"
	EventReportReady       Event = "report_ready"
	EventReviewRequired    Event = "review_required"
	EventQueueStarted      Event = "queue_started"
	EventQueueCompleted    Event = "queue_completed"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries event-specific fields used to render the message.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		settings:      cfg.Notifications,
		dedupWindow:   time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		recentEntries: make(map[string]time.Time),
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
	settings config.Notifications

	dedupWindow   time.Duration
	mu            sync.Mutex
	recentEntries map[string]time.Time
}

// Publish renders and sends the event when its category is enabled. Disabled
// or duplicate events are dropped silently.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event, payload) {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	if n.isDuplicate(event, msg.body) {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event, payload Payload) bool {
	switch event {
	case EventFetchCompleted:
		return n.settings.Ingest
	case EventAnalysisCompleted, EventProfileUpdated:
		return n.settings.Analysis
	case EventReportReady:
		return n.settings.Reports
	case EventReviewRequired:
		return n.settings.Review
	case EventQueueStarted:
		if !n.settings.Queue {
			return false
		}
		return payloadInt(payload, "count") >= n.settings.QueueMinItems
	case EventQueueCompleted:
		return n.settings.Queue
	case EventError:
		return n.settings.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

func (n *ntfyService) isDuplicate(event Event, body string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := string(event) + "\x00" + body
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.recentEntries[key]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	for k, at := range n.recentEntries {
		if now.Sub(at) >= n.dedupWindow {
			delete(n.recentEntries, k)
		}
	}
	n.recentEntries[key] = now
	return false
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventFetchCompleted:
		return message{
			title: "Soundcheck - Track Fetched",
			body:  fmt.Sprintf("Fetched: %s", trackLabel(payload)),
			tags:  []string{"soundcheck", "fetch", "completed"},
		}, true
	case EventAnalysisCompleted:
		return message{
			title: "Soundcheck - Analyzed",
			body:  fmt.Sprintf("Analysis complete: %s", trackLabel(payload)),
			tags:  []string{"soundcheck", "analysis", "completed"},
		}, true
	case EventProfileUpdated:
		body := fmt.Sprintf("Profile updated: %s", payloadString(payload, "set"))
		if count := payloadInt(payload, "trackCount"); count > 0 {
			body = fmt.Sprintf("%s (%d tracks)", body, count)
		}
		return message{
			title: "Soundcheck - Profile Updated",
			body:  body,
			tags:  []string{"soundcheck", "profile", "updated"},
		}, true
	case EventReportReady:
		body := fmt.Sprintf("Gap report ready: %s vs %s", trackLabel(payload), payloadString(payload, "set"))
		if score, ok := payload["score"].(float64); ok {
			body = fmt.Sprintf("%s - match %.0f/100", body, score)
		}
		return message{
			title:    "Soundcheck - Report Ready",
			body:     body,
			tags:     []string{"soundcheck", "report", "ready"},
			priority: "high",
		}, true
	case EventReviewRequired:
		body := fmt.Sprintf("Needs review: %s", trackLabel(payload))
		if reason := payloadString(payload, "reason"); reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{
			title: "Soundcheck - Review Required",
			body:  body,
			tags:  []string{"soundcheck", "review"},
		}, true
	case EventQueueStarted:
		return message{
			title: "Soundcheck - Queue Started",
			body:  fmt.Sprintf("Started processing queue with %d items", payloadInt(payload, "count")),
			tags:  []string{"soundcheck", "queue", "started"},
		}, true
	case EventQueueCompleted:
		return renderQueueCompleted(payload), true
	case EventError:
		return renderError(payload), true
	case EventTest:
		return message{
			title:    "Soundcheck - Test",
			body:     "Notification system test",
			tags:     []string{"soundcheck", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func renderQueueCompleted(payload Payload) message {
	processed := payloadInt(payload, "processed")
	failed := payloadInt(payload, "failed")
	duration, _ := payload["duration"].(time.Duration)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "Soundcheck - Queue Complete"
	body := fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, duration)
	if failed > 0 {
		title = "Soundcheck - Queue Complete (with errors)"
		body = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, duration)
	}
	return message{
		title: title,
		body:  body,
		tags:  []string{"soundcheck", "queue", "completed"},
	}
}

func renderError(payload Payload) message {
	var builder strings.Builder
	builder.WriteString("Error")
	if label := payloadString(payload, "context"); label != "" {
		builder.WriteString(" with ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err, ok := payload["error"].(error); ok && err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return message{
		title:    "Soundcheck - Error",
		body:     builder.String(),
		tags:     []string{"soundcheck", "error", "alert"},
		priority: "high",
	}
}

func trackLabel(payload Payload) string {
	title := payloadString(payload, "title")
	artist := payloadString(payload, "artist")
	switch {
	case title != "" && artist != "":
		return artist + " - " + title
	case title != "":
		return title
	default:
		return "unknown track"
	}
}

func payloadString(payload Payload, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func payloadInt(payload Payload, key string) int {
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

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

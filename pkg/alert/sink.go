package alert

import (
	"context"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

// Sink delivers a fully built Message somewhere an operator will see it.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// NopSink discards every message. Used when no webhook URL or token is
// configured so callers do not need to nil-check a Sink before using it.
type NopSink struct{}

func (NopSink) Send(ctx context.Context, msg Message) error { return nil }

// SlackSink delivers alerts to a Slack channel via the Slack Web API,
// deduplicating bursts of the identical alert within a cooldown window
// the way a build's background-task error alerting does.
type SlackSink struct {
	client        *slack.Client
	defaultChannel string

	mu       sync.Mutex
	lastSent map[string]time.Time
	cooldown time.Duration
}

// NewSlackSink builds a SlackSink posting to defaultChannel unless a
// Message specifies its own Channel.
func NewSlackSink(token, defaultChannel string) *SlackSink {
	return &SlackSink{
		client:         slack.New(token),
		defaultChannel: defaultChannel,
		lastSent:       make(map[string]time.Time),
		cooldown:       10 * time.Minute,
	}
}

// Send posts msg, split into chunks honoring Slack's per-message block
// ceiling. Identical (title, severity, outcome) alerts within the
// cooldown window are suppressed to avoid paging an operator once per
// webhook delivery during a flapping event.
func (s *SlackSink) Send(ctx context.Context, msg Message) error {
	key := string(msg.Severity) + "|" + msg.Title + "|" + string(msg.Outcome)
	s.mu.Lock()
	if last, ok := s.lastSent[key]; ok && time.Since(last) < s.cooldown {
		s.mu.Unlock()
		return nil
	}
	s.lastSent[key] = time.Now()
	s.mu.Unlock()

	channel := msg.Channel
	if channel == "" {
		channel = s.defaultChannel
	}

	for _, chunk := range msg.Blocks() {
		_, _, err := s.client.PostMessageContext(ctx, channel,
			slack.MsgOptionBlocks(chunk...),
			slack.MsgOptionText(msg.Title, false),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// WebhookSink delivers alerts through an incoming webhook URL rather
// than a bot token, for deployments that only have a webhook
// configured (SLACK_WEBHOOK_URL).
type WebhookSink struct {
	url string
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{url: url}
}

func (s *WebhookSink) Send(ctx context.Context, msg Message) error {
	for _, chunk := range msg.Blocks() {
		payload := &slack.WebhookMessage{
			Text:   msg.Title,
			Blocks: &slack.Blocks{BlockSet: chunk},
		}
		if err := slack.PostWebhookContext(ctx, s.url, payload); err != nil {
			return err
		}
	}
	return nil
}

// MultiSink fans a single Send out to every underlying sink, continuing
// past a failed delivery so one broken sink does not mask alerts that
// reach the others.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Send(ctx context.Context, msg Message) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Send(ctx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

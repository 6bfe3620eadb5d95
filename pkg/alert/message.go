// Package alert builds and delivers operator-facing notifications for
// policy violations, enforcement actions, and reconciliation failures.
// Messages are assembled as Slack Block Kit blocks regardless of which
// Sink ultimately delivers them, so a future sink (email, PagerDuty) can
// render the same structure without touching call sites.
package alert

import (
	"fmt"

	"github.com/slack-go/slack"
)

// Severity controls the header emoji and color accent of a Message.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) emoji() string {
	switch s {
	case SeverityCritical:
		return "\U0001F6A8" // rotating light
	case SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// Outcome annotates the enforcement decision the webhook engine took in
// response to the event the message describes.
type Outcome string

const (
	OutcomeAllow  Outcome = "ALLOW"
	OutcomeRevert Outcome = "REVERT"
	OutcomeAdjust Outcome = "ADJUST"
)

// maxBlocksPerMessage is Slack's hard limit on blocks in a single
// message payload.
const maxBlocksPerMessage = 50

// Message is a fully assembled alert, independent of transport.
type Message struct {
	Title    string
	Severity Severity
	Fields   []Field
	Body     string
	Context  []string
	Outcome  Outcome
	Channel  string
	Metadata string
}

// Field is a label/value pair rendered as a two-column Slack field.
type Field struct {
	Label string
	Value string
}

// MessageBuilder assembles a Message one piece at a time, mirroring the
// call sites that build it up across a reconcile or enforcement pass
// before a single Send.
type MessageBuilder struct {
	msg Message
}

// NewMessageBuilder starts a builder for an alert with the given title
// and severity.
func NewMessageBuilder(title string, severity Severity) *MessageBuilder {
	return &MessageBuilder{msg: Message{Title: title, Severity: severity}}
}

func (b *MessageBuilder) Field(label, value string) *MessageBuilder {
	b.msg.Fields = append(b.msg.Fields, Field{Label: label, Value: value})
	return b
}

func (b *MessageBuilder) Body(text string) *MessageBuilder {
	b.msg.Body = text
	return b
}

// ContextLine appends a line of supplementary detail (a diff hunk, a
// stack trace fragment, a raw webhook payload excerpt).
func (b *MessageBuilder) ContextLine(line string) *MessageBuilder {
	b.msg.Context = append(b.msg.Context, line)
	return b
}

// WithOutcome annotates the message with the enforcement decision taken.
func (b *MessageBuilder) WithOutcome(o Outcome) *MessageBuilder {
	b.msg.Outcome = o
	return b
}

func (b *MessageBuilder) Channel(channel string) *MessageBuilder {
	b.msg.Channel = channel
	return b
}

// WithMetadata attaches the raw originating event payload so the
// delivered message carries enough context to debug without a second
// round trip to the platform.
func (b *MessageBuilder) WithMetadata(raw string) *MessageBuilder {
	b.msg.Metadata = raw
	return b
}

func (b *MessageBuilder) Build() Message {
	return b.msg
}

// Blocks renders the message as Slack Block Kit blocks, chunked into
// groups of at most 50 — Slack's per-message block ceiling. A message
// that overflows one chunk is split into multiple payloads; callers
// send each chunk in order.
func (m Message) Blocks() [][]slack.Block {
	var all []slack.Block

	header := slack.NewHeaderBlock(slack.NewTextBlockObject(
		slack.PlainTextType,
		fmt.Sprintf("%s %s", m.Severity.emoji(), m.Title),
		true, false,
	))
	all = append(all, header)

	if len(m.Fields) > 0 {
		var fields []*slack.TextBlockObject
		for _, f := range m.Fields {
			fields = append(fields, slack.NewTextBlockObject(
				slack.MarkdownType, fmt.Sprintf("*%s:*\n%s", f.Label, f.Value), false, false,
			))
		}
		all = append(all, slack.NewSectionBlock(nil, fields, nil))
	}

	if m.Outcome != "" {
		all = append(all, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Enforcement outcome:* `%s`", m.Outcome), false, false),
			nil, nil,
		))
	}

	if m.Body != "" {
		all = append(all, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, m.Body, false, false),
			nil, nil,
		))
	}

	for _, line := range m.Context {
		all = append(all, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("```%s```", line), false, false),
			nil, nil,
		))
	}

	if m.Metadata != "" {
		all = append(all, slack.NewContextBlock("", slack.NewTextBlockObject(
			slack.MarkdownType, fmt.Sprintf("```%s```", m.Metadata), false, false,
		)))
	}

	return chunk(all, maxBlocksPerMessage)
}

func chunk(blocks []slack.Block, size int) [][]slack.Block {
	if len(blocks) == 0 {
		return nil
	}
	var out [][]slack.Block
	for len(blocks) > size {
		out = append(out, blocks[:size])
		blocks = blocks[size:]
	}
	out = append(out, blocks)
	return out
}

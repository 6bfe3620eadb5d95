package cmd

import (
	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/config"
)

// buildSink assembles the alert transport implied by cfg: a SlackSink
// and/or a WebhookSink fanned out through a MultiSink when more than
// one is configured, falling back to a NopSink so callers never need
// to nil-check before sending.
func buildSink(cfg *config.Config) alert.Sink {
	var sinks []alert.Sink
	if cfg.SlackToken != "" {
		sinks = append(sinks, alert.NewSlackSink(cfg.SlackToken, ""))
	}
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookSink(cfg.SlackWebhookURL))
	}
	switch len(sinks) {
	case 0:
		return alert.NopSink{}
	case 1:
		return sinks[0]
	default:
		return alert.NewMultiSink(sinks...)
	}
}

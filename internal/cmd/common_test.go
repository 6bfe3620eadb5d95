package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/config"
)

func TestBuildSink_NoneConfiguredReturnsNop(t *testing.T) {
	sink := buildSink(&config.Config{})
	assert.IsType(t, alert.NopSink{}, sink)
}

func TestBuildSink_SingleSlackTokenReturnsSlackSink(t *testing.T) {
	sink := buildSink(&config.Config{SlackToken: "xoxb-fake"})
	assert.IsType(t, &alert.SlackSink{}, sink)
}

func TestBuildSink_SingleWebhookURLReturnsWebhookSink(t *testing.T) {
	sink := buildSink(&config.Config{SlackWebhookURL: "https://hooks.slack.test/x"})
	assert.IsType(t, &alert.WebhookSink{}, sink)
}

func TestBuildSink_BothConfiguredReturnsMultiSink(t *testing.T) {
	sink := buildSink(&config.Config{SlackToken: "xoxb-fake", SlackWebhookURL: "https://hooks.slack.test/x"})
	assert.IsType(t, &alert.MultiSink{}, sink)
}

package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
)

func TestEvaluateRelease_TrustedSenderDroppedSilently(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	drop, _, err := EvaluateRelease(context.Background(), client, "acme", "widgets", "published", "alice", "v1.0.0",
		map[string]bool{"alice": true}, nil)
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestEvaluateRelease_PolicyMatchWithCompanionReleaseDropped(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("GetReleaseByTag", mock.Anything, "acme", "widgets-docs", "v1.0.0").
		Return(&platform.Release{TagName: "v1.0.0"}, nil)

	policies := []TrustedReleaserPolicy{
		{Repository: "widgets", Releaser: "bot", MustMatchRepo: "widgets-docs", Actions: []string{"published"}},
	}

	drop, _, err := EvaluateRelease(context.Background(), client, "acme", "widgets", "published", "bot", "v1.0.0",
		nil, policies)
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestEvaluateRelease_PolicyMatchWithoutCompanionReleaseIsCritical(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	client.On("GetReleaseByTag", mock.Anything, "acme", "widgets-docs", "v1.0.0").
		Return((*platform.Release)(nil), nil)

	policies := []TrustedReleaserPolicy{
		{Repository: "widgets", Releaser: "bot", MustMatchRepo: "widgets-docs", Actions: []string{"published"}},
	}

	drop, severity, err := EvaluateRelease(context.Background(), client, "acme", "widgets", "published", "bot", "v1.0.0",
		nil, policies)
	require.NoError(t, err)
	assert.False(t, drop)
	assert.Equal(t, alert.SeverityCritical, severity)
}

func TestEvaluateRelease_NoPolicyMatchFallsBackToActionSeverity(t *testing.T) {
	client := platform.NewMockAPIClient(false)

	drop, severity, err := EvaluateRelease(context.Background(), client, "acme", "widgets", "deleted", "anyone", "v1.0.0",
		nil, nil)
	require.NoError(t, err)
	assert.False(t, drop)
	assert.Equal(t, alert.SeverityCritical, severity)

	drop, severity, err = EvaluateRelease(context.Background(), client, "acme", "widgets", "created", "anyone", "v1.0.0",
		nil, nil)
	require.NoError(t, err)
	assert.False(t, drop)
	assert.Equal(t, alert.SeverityNormal, severity)
}

func TestEvaluateRelease_UnknownActionDroppedSilently(t *testing.T) {
	client := platform.NewMockAPIClient(false)
	drop, _, err := EvaluateRelease(context.Background(), client, "acme", "widgets", "some_future_action", "anyone", "v1.0.0",
		nil, nil)
	require.NoError(t, err)
	assert.True(t, drop)
}

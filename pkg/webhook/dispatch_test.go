package webhook

import (
	"context"
	"testing"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/dryrun"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

type fakeAlertSink struct {
	sent []alert.Message
	err  error
}

func (f *fakeAlertSink) Send(ctx context.Context, msg alert.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func newTestServer(sink alert.Sink) *Server {
	return NewServer(&Server{Sink: sink, Logger: zap.NewNop()})
}

func TestDispatch_SuppressedClassIsNoOp(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)

	s.dispatch(context.Background(), "repository", nil, Classification{Decision: DecisionAlert, Suppress: true}, "{}")
	assert.Empty(t, sink.sent)
}

func TestDispatch_IgnoreDecisionIsNoOp(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)

	s.dispatch(context.Background(), "repository", nil, Classification{Decision: DecisionIgnore}, "{}")
	assert.Empty(t, sink.sent)
}

func TestDispatch_AlertDecisionSendsThroughSink(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)

	s.dispatch(context.Background(), "repository", nil, Classification{
		Decision: DecisionAlert,
		Severity: alert.SeverityWarning,
		Title:    "Repository Made Public",
	}, `{"action":"publicized"}`)

	assert.Len(t, sink.sent, 1)
	assert.Equal(t, "Repository Made Public", sink.sent[0].Title)
}

func releaseEvent(action, sender, tag string) *github.ReleaseEvent {
	return &github.ReleaseEvent{
		Action: github.String(action),
		Repo: &github.Repository{
			Name:  github.String("widgets"),
			Owner: &github.User{Login: github.String("acme")},
		},
		Sender:  &github.User{Login: github.String(sender)},
		Release: &github.RepositoryRelease{TagName: github.String(tag)},
	}
}

func TestDispatch_ReleaseEventFromTrustedReleaserIsDropped(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.TrustedReleasers = map[string]bool{"bot": true}
	s.Cache = platform.NewCache()
	s.Cache.SeedClient("acme", platform.NewMockAPIClient(true))

	class := Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Release Event"}
	s.dispatch(context.Background(), "release", releaseEvent("published", "bot", "v1.0.0"), class, "{}")

	assert.Empty(t, sink.sent)
}

func TestDispatch_ReleaseEventPolicyMatchWithoutCompanionAlertsCritical(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.TrustedReleaserPolicies = []TrustedReleaserPolicy{
		{Repository: "widgets", Releaser: "bot", MustMatchRepo: "widgets-docs", Actions: []string{"published"}},
	}
	client := platform.NewMockAPIClient(true)
	client.On("GetReleaseByTag", mock.Anything, "acme", "widgets-docs", "v1.0.0").
		Return((*platform.Release)(nil), nil)
	s.Cache = platform.NewCache()
	s.Cache.SeedClient("acme", client)

	class := Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Release Event"}
	s.dispatch(context.Background(), "release", releaseEvent("published", "bot", "v1.0.0"), class, "{}")

	assert.Len(t, sink.sent, 1)
	assert.Equal(t, alert.SeverityCritical, sink.sent[0].Severity)
}

func TestDispatch_ReleaseEventPolicyMatchWithCompanionIsDropped(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.TrustedReleaserPolicies = []TrustedReleaserPolicy{
		{Repository: "widgets", Releaser: "bot", MustMatchRepo: "widgets-docs", Actions: []string{"published"}},
	}
	client := platform.NewMockAPIClient(true)
	client.On("GetReleaseByTag", mock.Anything, "acme", "widgets-docs", "v1.0.0").
		Return(&platform.Release{TagName: "v1.0.0"}, nil)
	s.Cache = platform.NewCache()
	s.Cache.SeedClient("acme", client)

	class := Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Release Event"}
	s.dispatch(context.Background(), "release", releaseEvent("published", "bot", "v1.0.0"), class, "{}")

	assert.Empty(t, sink.sent)
}

func TestDispatch_ReleaseEventUntrustedFallsBackToNormalSeverity(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.Cache = platform.NewCache()
	s.Cache.SeedClient("acme", platform.NewMockAPIClient(true))

	class := Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Release Event"}
	s.dispatch(context.Background(), "release", releaseEvent("published", "someone", "v1.0.0"), class, "{}")

	assert.Len(t, sink.sent, 1)
	assert.Equal(t, alert.SeverityNormal, sink.sent[0].Severity)
}

func TestDispatch_ReleaseEventClientAcquisitionFailureFallsBackToClass(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.Cache = platform.NewCache()
	s.Provider = platform.NewCredentialProvider("", false)

	class := Classification{Decision: DecisionAlert, Severity: alert.SeverityNormal, Title: "Release Event"}
	s.dispatch(context.Background(), "release", releaseEvent("published", "someone", "v1.0.0"), class, "{}")

	assert.Len(t, sink.sent, 1)
	assert.Equal(t, "Release Event", sink.sent[0].Title)
}

func TestAlert_LogsButDoesNotPanicOnSinkFailure(t *testing.T) {
	sink := &fakeAlertSink{err: assert.AnError}
	s := newTestServer(sink)

	assert.NotPanics(t, func() {
		s.alert(context.Background(), Classification{Decision: DecisionAlert, Title: "x", Severity: alert.SeverityNormal}, "{}")
	})
	assert.Len(t, sink.sent, 1)
}

func TestHandleEnforce_NonMemberEventIsNoOp(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.LoadConfig = func(ctx context.Context) (*policy.PermissionsConfig, error) {
		t.Fatal("LoadConfig should not be called for a non-member event")
		return nil, nil
	}

	s.handleEnforce(context.Background(), &github.PullRequestEvent{}, "{}")
	assert.Empty(t, sink.sent)
}

func TestHandleEnforce_LoadConfigErrorIsNoOp(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.LoadConfig = func(ctx context.Context) (*policy.PermissionsConfig, error) {
		return nil, assert.AnError
	}

	event := &github.MemberEvent{
		Org:    &github.Organization{Login: github.String("acme")},
		Repo:   &github.Repository{Name: github.String("widgets")},
		Member: &github.User{Login: github.String("octocat")},
		Action: github.String("added"),
	}

	s.handleEnforce(context.Background(), event, "{}")
	assert.Empty(t, sink.sent)
}

func TestHandleEnforce_UnknownOrgIsNoOp(t *testing.T) {
	sink := &fakeAlertSink{}
	s := newTestServer(sink)
	s.LoadConfig = func(ctx context.Context) (*policy.PermissionsConfig, error) {
		return &policy.PermissionsConfig{Organizations: []policy.OrganizationConfig{{Organization: "other-org"}}}, nil
	}

	event := &github.MemberEvent{
		Org:    &github.Organization{Login: github.String("acme")},
		Repo:   &github.Repository{Name: github.String("widgets")},
		Member: &github.User{Login: github.String("octocat")},
		Action: github.String("added"),
	}

	s.handleEnforce(context.Background(), event, "{}")
	assert.Empty(t, sink.sent)
}

func TestHandleDryRun_NonPullRequestEventIsNoOp(t *testing.T) {
	s := newTestServer(&fakeAlertSink{})
	s.Harness = &dryrun.Harness{}
	s.DryRunQueue = dryrun.NewQueue()
	defer s.DryRunQueue.Stop()

	assert.NotPanics(t, func() {
		s.handleDryRun(&github.MemberEvent{})
	})
}

func TestHandleDryRun_NilHarnessIsNoOp(t *testing.T) {
	s := newTestServer(&fakeAlertSink{})
	s.DryRunQueue = dryrun.NewQueue()
	defer s.DryRunQueue.Stop()

	event := &github.PullRequestEvent{
		Repo: &github.Repository{
			Name:  github.String("meta"),
			Owner: &github.User{Login: github.String("acme")},
		},
		PullRequest: &github.PullRequest{Number: github.Int(7)},
	}

	assert.NotPanics(t, func() {
		s.handleDryRun(event)
	})
}

func TestHandleDryRun_RepoMismatchIsNoOp(t *testing.T) {
	s := newTestServer(&fakeAlertSink{})
	s.Harness = &dryrun.Harness{}
	s.DryRunQueue = dryrun.NewQueue()
	defer s.DryRunQueue.Stop()
	s.ConfigOrg = "acme"
	s.ConfigRepo = "meta"

	event := &github.PullRequestEvent{
		Repo: &github.Repository{
			Name:  github.String("other-repo"),
			Owner: &github.User{Login: github.String("acme")},
		},
		PullRequest: &github.PullRequest{Number: github.Int(7)},
	}

	assert.NotPanics(t, func() {
		s.handleDryRun(event)
	})
}

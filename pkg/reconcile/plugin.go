package reconcile

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/policy"
)

// TeamPlugin is the optional handleTeam capability a plugin may
// implement. The reconciler dispatches to it polymorphically (a
// capability-set interface, per the design notes) rather than through
// inheritance: FanOut.Plugins is a slice of the minimal Plugin interface,
// and each plugin that also satisfies TeamPlugin gets called.
type TeamPlugin interface {
	HandleTeam(ctx context.Context, org string, team policy.TeamConfig, sink alert.Sink) error
}

// RepoPlugin is the optional handleRepo capability.
type RepoPlugin interface {
	HandleRepo(ctx context.Context, org string, repo policy.RepositoryConfig, teams []policy.TeamConfig, owner string, sink alert.Sink) error
}

// Plugin is the minimal interface every plugin satisfies (it only names
// itself); FanOut type-asserts each one against TeamPlugin/RepoPlugin.
type Plugin interface {
	Name() string
}

// FanOut dispatches HandleTeam/HandleRepo to every configured plugin
// that implements the corresponding capability. Errors from individual
// plugins are logged by the caller and do not abort the fan-out —
// plugins are opaque collaborators whose own contracts are out of scope.
type FanOut struct {
	Plugins []Plugin
}

func (f *FanOut) HandleTeam(ctx context.Context, org string, team policy.TeamConfig, sink alert.Sink) []error {
	var errs []error
	for _, p := range f.Plugins {
		tp, ok := p.(TeamPlugin)
		if !ok {
			continue
		}
		if err := tp.HandleTeam(ctx, org, team, sink); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: handleTeam %s: %w", p.Name(), team.Name, err))
		}
	}
	return errs
}

func (f *FanOut) HandleRepo(ctx context.Context, org string, repo policy.RepositoryConfig, teams []policy.TeamConfig, owner string, sink alert.Sink) []error {
	var errs []error
	for _, p := range f.Plugins {
		rp, ok := p.(RepoPlugin)
		if !ok {
			continue
		}
		if err := rp.HandleRepo(ctx, org, repo, teams, owner, sink); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: handleRepo %s: %w", p.Name(), repo.Name, err))
		}
	}
	return errs
}

// ChatPlugin is the one in-core, fully specified plugin: it posts a
// one-line "repo reconciled" notice to a Slack channel after a repo's
// permission reconcile, using the same slack-go/slack client the alert
// sink's SlackSink already depends on. The identity-directory,
// additional chat user-group, and hosting-service plugins remain named
// collaborators reachable only through TeamPlugin/RepoPlugin — their own
// contracts are out of scope.
type ChatPlugin struct {
	client  *slack.Client
	channel string
}

func NewChatPlugin(token, channel string) *ChatPlugin {
	return &ChatPlugin{client: slack.New(token), channel: channel}
}

func (p *ChatPlugin) Name() string { return "chat" }

func (p *ChatPlugin) HandleRepo(ctx context.Context, org string, repo policy.RepositoryConfig, teams []policy.TeamConfig, owner string, sink alert.Sink) error {
	if p.channel == "" {
		return nil
	}
	_, _, err := p.client.PostMessageContext(ctx, p.channel,
		slack.MsgOptionText(fmt.Sprintf(":white_check_mark: reconciled `%s/%s`", org, repo.Name), false),
	)
	return err
}

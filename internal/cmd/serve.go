package cmd

import (
	"context"

	"github.com/google/go-github/v66/github"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakline-labs/warden/internal/logging"
	"github.com/oakline-labs/warden/pkg/config"
	"github.com/oakline-labs/warden/pkg/dryrun"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
	"github.com/oakline-labs/warden/pkg/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook enforcement engine and dry-run harness",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Init(debugLogs); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	token, err := platform.TokenFromEnv()
	if err != nil {
		return err
	}
	gistToken := cfg.GistToken
	if gistToken == "" {
		gistToken = token
	}

	trusted := make(map[string]bool, len(cfg.TrustedReleasers))
	for _, r := range cfg.TrustedReleasers {
		trusted[r] = true
	}
	var policies []webhook.TrustedReleaserPolicy
	for _, p := range cfg.ReleaserPolicies {
		policies = append(policies, webhook.TrustedReleaserPolicy{
			Repository:    p.Repository,
			Releaser:      p.Releaser,
			MustMatchRepo: p.MustMatchRepo,
			Actions:       p.Actions,
		})
	}

	gistClient := github.NewClient(nil).WithAuthToken(gistToken)
	harness := dryrun.NewHarness(gistClient, cfg.PermissionsFilePath)
	queue := dryrun.NewQueue()

	provider := platform.NewCredentialProvider(token, false)
	cache := platform.NewCache()
	sink := buildSink(cfg)

	server := webhook.NewServer(&webhook.Server{
		Secret:                  []byte(cfg.GitHubWebhookSecret),
		SelfLogin:               cfg.SelfLogin,
		ImportantBranch:         cfg.ImportantBranch,
		ConfigOrg:               cfg.PermissionsFileOrg,
		ConfigRepo:              cfg.PermissionsFileRepo,
		ConfigPath:              cfg.PermissionsFilePath,
		Provider:                provider,
		Cache:                   cache,
		Sink:                    sink,
		TrustedReleasers:        trusted,
		TrustedReleaserPolicies: policies,
		Harness:                 harness,
		DryRunQueue:             queue,
		LoadConfig: func(ctx context.Context) (*policy.PermissionsConfig, error) {
			fetcher := platform.NewClient(ctx, token, true)
			return policy.Load(ctx, policy.LoadOptions{
				Org:  cfg.PermissionsFileOrg,
				Repo: cfg.PermissionsFileRepo,
				Path: cfg.PermissionsFilePath,
				Ref:  cfg.PermissionsFileRef,
			}, fetcher)
		},
		Logger: logging.L(),
	})

	addr := ":" + cfg.Port
	logging.L().Info("serve starting", zap.String("addr", addr))
	return server.Serve(addr)
}

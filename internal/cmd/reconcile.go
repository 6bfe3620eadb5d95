package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oakline-labs/warden/internal/logging"
	"github.com/oakline-labs/warden/pkg/config"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
	"github.com/oakline-labs/warden/pkg/reconcile"
)

var forReal bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the declarative configuration against live organizations",
	Long: `Loads the permissions document, validates it, and drives every
configured organization to match it. The global dry-run flag stays ON
unless --do-it-for-real-this-time is given; while it is on, every client is
narrowed to read-only and no mutation is actually sent.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&forReal, "do-it-for-real-this-time", false, "disable dry-run and perform mutations")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := logging.Init(debugLogs); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading process configuration: %w", err)
	}

	token, err := platform.TokenFromEnv()
	if err != nil {
		return err
	}

	dryRun := !forReal
	provider := platform.NewCredentialProvider(token, dryRun)

	ctx := context.Background()
	fetcher := platform.NewClient(ctx, token, true)
	doc, err := policy.Load(ctx, policy.LoadOptions{
		LocalPath: cfg.PermissionsFileLocalPath,
		Org:       cfg.PermissionsFileOrg,
		Repo:      cfg.PermissionsFileRepo,
		Path:      cfg.PermissionsFilePath,
		Ref:       cfg.PermissionsFileRef,
	}, fetcher)
	if err != nil {
		logging.L().Error("loading configuration failed", zap.Error(err))
		return err
	}

	sink := buildSink(cfg)
	reconciler := reconcile.NewReconciler(provider, sink, dryRun, logging.L())
	fleet := reconcile.NewFleetReconciler(reconciler)

	result := fleet.Run(ctx, doc)
	for org, failErr := range result.Failed {
		logging.L().Error("organization reconcile failed", zap.String("org", org), zap.Error(failErr))
	}
	logging.L().Info("reconcile complete",
		zap.Int("succeeded", result.Summary.SuccessCount),
		zap.Int("failed", result.Summary.FailureCount),
		zap.Bool("dry_run", dryRun),
	)

	if result.Summary.FailureCount > 0 {
		return fmt.Errorf("%d organization(s) failed to reconcile", result.Summary.FailureCount)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakline-labs/warden/internal/logging"
	"github.com/oakline-labs/warden/pkg/config"
	"github.com/oakline-labs/warden/pkg/platform"
	"github.com/oakline-labs/warden/pkg/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the permissions configuration without reconciling anything",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := logging.Init(debugLogs); err != nil {
		return err
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading process configuration: %w", err)
	}

	ctx := context.Background()
	var fetcher policy.ContentFetcher
	if token, tokenErr := platform.TokenFromEnv(); tokenErr == nil {
		fetcher = platform.NewClient(ctx, token, true)
	}

	_, err = policy.Load(ctx, policy.LoadOptions{
		LocalPath: cfg.PermissionsFileLocalPath,
		Org:       cfg.PermissionsFileOrg,
		Repo:      cfg.PermissionsFileRepo,
		Path:      cfg.PermissionsFilePath,
		Ref:       cfg.PermissionsFileRef,
	}, fetcher)
	if err != nil {
		return err
	}

	fmt.Println("configuration is valid")
	return nil
}

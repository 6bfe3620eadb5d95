package policy

import (
	"context"
	"fmt"
	"os"
)

// ContentFetcher is the minimal platform capability the loader needs to
// fetch a config document stored in a repository on the upstream platform.
// pkg/platform's client satisfies this interface; policy stays free of any
// transport dependency.
type ContentFetcher interface {
	GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error)
}

// LocalCandidates names the file-system candidates tried before falling back to the
// platform fetch.
var LocalCandidates = []string{"config.yml", "config.yaml"}

// LoadOptions carries the environment-derived parameters §4.1 names.
type LoadOptions struct {
	LocalPath string // PERMISSIONS_FILE_LOCAL_PATH, if set

	Org  string
	Repo string
	Path string
	Ref  string
}

// Load resolves the configuration document following the §4.1 source
// order (local file, PERMISSIONS_FILE_LOCAL_PATH, then the platform fetch),
// normalizes it, validates it, and returns the resulting OrganizationConfig
// list. fetcher may be nil when only local sources are expected to succeed.
func Load(ctx context.Context, opts LoadOptions, fetcher ContentFetcher) (*PermissionsConfig, error) {
	data, err := loadBytes(ctx, opts, fetcher)
	if err != nil {
		return nil, err
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, &ConfigError{Kind: ConfigMalformed, Message: err.Error()}
	}

	if err := Normalize(&doc); err != nil {
		return nil, &ConfigError{Kind: ConfigInvalid, Message: err.Error()}
	}
	if err := Validate(&doc); err != nil {
		return nil, &ConfigError{Kind: ConfigInvalid, Message: err.Error(), Cause: err}
	}

	return &doc, nil
}

func loadBytes(ctx context.Context, opts LoadOptions, fetcher ContentFetcher) ([]byte, error) {
	for _, candidate := range LocalCandidates {
		if data, err := os.ReadFile(candidate); err == nil {
			return data, nil
		}
	}

	if opts.LocalPath != "" {
		data, err := os.ReadFile(opts.LocalPath)
		if err != nil {
			return nil, &ConfigError{Kind: ConfigMissing, Message: fmt.Sprintf("reading %s: %v", opts.LocalPath, err)}
		}
		return data, nil
	}

	if fetcher == nil {
		return nil, &ConfigError{Kind: ConfigMissing, Message: "no local config file found and no platform fetcher configured"}
	}

	data, err := fetcher.GetFileContent(ctx, opts.Org, opts.Repo, opts.Path, opts.Ref)
	if err != nil {
		return nil, &ConfigError{Kind: ConfigMissing, Message: fmt.Sprintf("fetching %s/%s@%s/%s: %v", opts.Org, opts.Repo, opts.Ref, opts.Path, err)}
	}
	return data, nil
}

// ConfigErrorKind enumerates the loader's three failure classes.
type ConfigErrorKind string

const (
	ConfigMissing   ConfigErrorKind = "config_missing"
	ConfigMalformed ConfigErrorKind = "config_malformed"
	ConfigInvalid   ConfigErrorKind = "config_invalid"
)

// ConfigError is returned by Load for every §4.1 failure mode.
type ConfigError struct {
	Kind    ConfigErrorKind
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

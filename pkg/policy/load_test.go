package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (f stubFetcher) GetFileContent(ctx context.Context, org, repo, path, ref string) ([]byte, error) {
	return f.data, f.err
}

func chdirTemp(t *testing.T) string {
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoad_FindsLocalConfigYML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("organization: acme\n"), 0o644))

	cfg, err := Load(context.Background(), LoadOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Organizations, 1)
	assert.Equal(t, "acme", cfg.Organizations[0].Organization)
}

func TestLoad_FindsLocalConfigYAMLWhenYMLAbsent(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("organization: acme\n"), 0o644))

	cfg, err := Load(context.Background(), LoadOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Organizations[0].Organization)
}

func TestLoad_FallsBackToLocalPathWhenNoCandidateFilesPresent(t *testing.T) {
	chdirTemp(t)
	explicit := filepath.Join(t.TempDir(), "elsewhere.yml")
	require.NoError(t, os.WriteFile(explicit, []byte("organization: widgetco\n"), 0o644))

	cfg, err := Load(context.Background(), LoadOptions{LocalPath: explicit}, nil)
	require.NoError(t, err)
	assert.Equal(t, "widgetco", cfg.Organizations[0].Organization)
}

func TestLoad_LocalPathMissingReturnsConfigMissing(t *testing.T) {
	chdirTemp(t)

	_, err := Load(context.Background(), LoadOptions{LocalPath: "/no/such/file.yml"}, nil)
	require.Error(t, err)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConfigMissing, cerr.Kind)
}

func TestLoad_FallsBackToFetcherWhenNoLocalSourceConfigured(t *testing.T) {
	chdirTemp(t)
	fetcher := stubFetcher{data: []byte("organization: acme\n")}

	cfg, err := Load(context.Background(), LoadOptions{Org: "acme", Repo: "meta", Path: "config.yml", Ref: "main"}, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Organizations[0].Organization)
}

func TestLoad_NoLocalSourceAndNoFetcherReturnsConfigMissing(t *testing.T) {
	chdirTemp(t)

	_, err := Load(context.Background(), LoadOptions{}, nil)
	require.Error(t, err)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConfigMissing, cerr.Kind)
}

func TestLoad_FetcherErrorWrappedAsConfigMissing(t *testing.T) {
	chdirTemp(t)
	fetcher := stubFetcher{err: errors.New("not found")}

	_, err := Load(context.Background(), LoadOptions{Org: "acme", Repo: "meta", Path: "config.yml", Ref: "main"}, fetcher)
	require.Error(t, err)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConfigMissing, cerr.Kind)
}

func TestLoad_MalformedYAMLReturnsConfigMalformed(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("organization: [this is not valid\n"), 0o644))

	_, err := Load(context.Background(), LoadOptions{}, nil)
	require.Error(t, err)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConfigMalformed, cerr.Kind)
}

func TestLoad_MissingOrganizationNameReturnsConfigInvalid(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("teams: []\n"), 0o644))

	_, err := Load(context.Background(), LoadOptions{}, nil)
	require.Error(t, err)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ConfigInvalid, cerr.Kind)
	assert.NotNil(t, cerr.Unwrap())
}

func TestConfigError_ErrorFormatsKindAndMessage(t *testing.T) {
	err := &ConfigError{Kind: ConfigMissing, Message: "no file found"}
	assert.Equal(t, "config_missing: no file found", err.Error())
}

func TestConfigError_UnwrapReturnsNilWhenNoCause(t *testing.T) {
	err := &ConfigError{Kind: ConfigMissing, Message: "no file found"}
	assert.Nil(t, err.Unwrap())
}

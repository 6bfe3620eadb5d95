// Package config loads the process-level environment configuration described
// in the external interfaces section of the controller's specification.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReleaserPolicy is one entry of SHERIFF_TRUSTED_RELEASER_POLICIES.
type ReleaserPolicy struct {
	Repository    string   `json:"repository"`
	Releaser      string   `json:"releaser"`
	MustMatchRepo string   `json:"mustMatchRepo"`
	Actions       []string `json:"actions"`
}

// Plugin names accepted in SHERIFF_PLUGINS.
const (
	PluginGSuite = "gsuite"
	PluginSlack  = "slack"
	PluginHeroku = "heroku"
	PluginGitHub = "github"
)

// Config is the fully resolved process configuration, loaded once at
// startup from the environment described in the specification's external
// interfaces section.
type Config struct {
	PermissionsFileOrg       string
	PermissionsFileRepo      string
	PermissionsFilePath      string
	PermissionsFileRef       string
	PermissionsFileLocalPath string

	GitHubWebhookSecret string
	GitHubAppCreds       string
	GistToken            string

	SelfLogin            string
	ImportantBranch      string
	TrustedReleasers     []string
	ReleaserPolicies     []ReleaserPolicy

	Plugins []string

	Port       string
	HostURL    string

	SlackWebhookURL string
	SlackToken      string

	GSuiteCredentials string
	GSuiteToken       string
	GSuiteDomain      string
	SlackDomain       string

	HerokuToken       string
	HerokuMagicAdmin  bool

	NPMTrustedPublisherClientID string
	AutoTunnelNgrok             bool
}

// Load reads the environment and returns a validated Config. The only
// required variable is PERMISSIONS_FILE_ORG; everything else carries the
// documented default.
func Load() (*Config, error) {
	cfg := &Config{
		PermissionsFileOrg:       os.Getenv("PERMISSIONS_FILE_ORG"),
		PermissionsFileRepo:      envOrDefault("PERMISSIONS_FILE_REPO", ".permissions"),
		PermissionsFilePath:      envOrDefault("PERMISSIONS_FILE_PATH", "config.yaml"),
		PermissionsFileRef:       envOrDefault("PERMISSIONS_FILE_REF", "main"),
		PermissionsFileLocalPath: os.Getenv("PERMISSIONS_FILE_LOCAL_PATH"),

		GitHubWebhookSecret: envOrDefault("GITHUB_WEBHOOK_SECRET", "development"),
		GitHubAppCreds:      os.Getenv("SHERIFF_GITHUB_APP_CREDS"),
		GistToken:           os.Getenv("SHERIFF_GIST_TOKEN"),

		SelfLogin:       os.Getenv("SHERIFF_SELF_LOGIN"),
		ImportantBranch: os.Getenv("SHERIFF_IMPORTANT_BRANCH"),

		Port:    envOrDefault("PORT", "8080"),
		HostURL: os.Getenv("SHERIFF_HOST_URL"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SlackToken:      os.Getenv("SLACK_TOKEN"),

		GSuiteCredentials: os.Getenv("GSUITE_CREDENTIALS"),
		GSuiteToken:       os.Getenv("GSUITE_TOKEN"),
		GSuiteDomain:      os.Getenv("SHERIFF_GSUITE_DOMAIN"),
		SlackDomain:       os.Getenv("SHERIFF_SLACK_DOMAIN"),

		HerokuToken:      os.Getenv("HEROKU_TOKEN"),
		HerokuMagicAdmin: envBool("HEROKU_MAGIC_ADMIN"),

		NPMTrustedPublisherClientID: os.Getenv("NPM_TRUSTED_PUBLISHER_GITHUB_APP_CLIENT_ID"),
		AutoTunnelNgrok:             envBool("AUTO_TUNNEL_NGROK"),
	}

	if v := os.Getenv("SHERIFF_TRUSTED_RELEASERS"); v != "" {
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.TrustedReleasers = append(cfg.TrustedReleasers, r)
			}
		}
	}

	if v := os.Getenv("SHERIFF_TRUSTED_RELEASER_POLICIES"); v != "" {
		if err := json.Unmarshal([]byte(v), &cfg.ReleaserPolicies); err != nil {
			return nil, fmt.Errorf("parsing SHERIFF_TRUSTED_RELEASER_POLICIES: %w", err)
		}
	}

	if v := os.Getenv("SHERIFF_PLUGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Plugins = append(cfg.Plugins, p)
			}
		}
	}

	if cfg.PermissionsFileOrg == "" {
		return nil, fmt.Errorf("PERMISSIONS_FILE_ORG is required")
	}

	return cfg, nil
}

// HasPlugin reports whether the named plugin is enabled via SHERIFF_PLUGINS.
func (c *Config) HasPlugin(name string) bool {
	for _, p := range c.Plugins {
		if p == name {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

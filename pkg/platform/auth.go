package platform

import (
	"context"
	"fmt"
	"os"
)

// CredentialProvider hands out authenticated clients narrowed to the
// minimal scopes an org (or enterprise) needs. When GlobalDryRun is set,
// every client it returns is forced read-only regardless of the caller's
// request — defense in depth alongside the reconciler's own dry-run gate
// on every mutating call.
type CredentialProvider struct {
	token         string
	GlobalDryRun  bool
	newClientFunc func(ctx context.Context, token string, readOnly bool) APIClient
}

// NewCredentialProvider builds a CredentialProvider from the app
// credentials environment. token is the resolved installation or personal
// access token; acquiring it from SHERIFF_GITHUB_APP_CREDS is out of scope
// for this package (treated as an abstract credential source per the
// specification).
func NewCredentialProvider(token string, globalDryRun bool) *CredentialProvider {
	return &CredentialProvider{
		token:        token,
		GlobalDryRun: globalDryRun,
		newClientFunc: func(ctx context.Context, token string, readOnly bool) APIClient {
			return NewClient(ctx, token, readOnly)
		},
	}
}

// ClientFor returns an authenticated client for org, narrowed to
// read-only when requested or when the provider's global dry-run flag is
// set.
func (p *CredentialProvider) ClientFor(ctx context.Context, org string, readOnly bool) (APIClient, error) {
	if p.token == "" {
		return nil, New(ErrAuthExpired, "no credential available for org "+org, nil)
	}
	return p.newClientFunc(ctx, p.token, readOnly || p.GlobalDryRun), nil
}

// TokenFromEnv resolves a token the way the CLI entry points do: first
// GITHUB_TOKEN, falling back to the credential named by
// SHERIFF_GITHUB_APP_CREDS if that variable happens to hold a literal token
// rather than a path to app-installation credentials.
func TokenFromEnv() (string, error) {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t, nil
	}
	if t := os.Getenv("SHERIFF_GITHUB_APP_CREDS"); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("no GitHub credential found: set GITHUB_TOKEN or SHERIFF_GITHUB_APP_CREDS")
}

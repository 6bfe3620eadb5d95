package webhook

import (
	"context"

	"github.com/oakline-labs/warden/pkg/alert"
	"github.com/oakline-labs/warden/pkg/platform"
)

// TrustedReleaserPolicy is one entry of SHERIFF_TRUSTED_RELEASER_POLICIES:
// a release by `releaser` on `repository`, performing `action`, is
// considered legitimate only if an identically tagged release also
// exists on MustMatchRepo.
type TrustedReleaserPolicy struct {
	Repository    string   `json:"repository"`
	Releaser      string   `json:"releaser"`
	MustMatchRepo string   `json:"mustMatchRepo"`
	Actions       []string `json:"actions"`
}

func (p TrustedReleaserPolicy) matches(repo, releaser, action string) bool {
	if p.Repository != repo || p.Releaser != releaser {
		return false
	}
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// EvaluateRelease implements §4.7.2: drop silently if the sender is
// trusted outright; otherwise check every policy for a matching
// repo/releaser/action and require a same-tag release on the policy's
// companion repo before staying quiet.
func EvaluateRelease(ctx context.Context, client platform.APIClient, org, repo, action, sender, tagName string, trustedReleasers map[string]bool, policies []TrustedReleaserPolicy) (drop bool, severity alert.Severity, err error) {
	if trustedReleasers[sender] {
		return true, "", nil
	}

	for _, p := range policies {
		if !p.matches(repo, sender, action) {
			continue
		}
		release, lookupErr := client.GetReleaseByTag(ctx, org, p.MustMatchRepo, tagName)
		if lookupErr != nil {
			return false, alert.SeverityCritical, nil
		}
		if release != nil {
			return true, "", nil
		}
		return false, alert.SeverityCritical, nil
	}

	switch action {
	case "deleted":
		return false, alert.SeverityCritical, nil
	case "unpublished", "edited":
		return false, alert.SeverityWarning, nil
	case "created", "published", "prereleased":
		return false, alert.SeverityNormal, nil
	default:
		return true, "", nil
	}
}

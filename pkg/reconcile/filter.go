package reconcile

import "regexp"

// glitchedRepoHashes names repositories that must never be enumerated,
// mutated, or reported by the reconciler regardless of what the config
// document or the observed platform state says about them.
var glitchedRepoHashes = map[string]struct{}{}

// securityAdvisoryForkPattern matches the naming convention of a
// temporary private fork the platform creates while a security advisory
// is drafted: "<repo>-ghsa-xxxx-xxxx-xxxx".
var securityAdvisoryForkPattern = regexp.MustCompile(`^[\w]+-ghsa-[A-Za-z0-9-]{4}-[A-Za-z0-9-]{4}-[A-Za-z0-9-]{4}$`)

// SkipRepo reports whether name must be invisible to the reconciler: a
// known glitched repo, or a security-advisory fork.
func SkipRepo(name string) bool {
	if _, ok := glitchedRepoHashes[name]; ok {
		return true
	}
	return securityAdvisoryForkPattern.MatchString(name)
}

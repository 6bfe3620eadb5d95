package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipRepo_GHSAForkSkipped(t *testing.T) {
	assert.True(t, SkipRepo("widgets-ghsa-ab12-cd34-ef56"))
}

func TestSkipRepo_OrdinaryRepoNotSkipped(t *testing.T) {
	assert.False(t, SkipRepo("widgets"))
	assert.False(t, SkipRepo("widgets-docs"))
}

func TestSkipRepo_NearMissGHSAPatternNotSkipped(t *testing.T) {
	assert.False(t, SkipRepo("widgets-ghsa-ab12"))
}

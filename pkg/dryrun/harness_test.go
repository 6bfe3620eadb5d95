package dryrun

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSubprocess_CapturesCombinedOutputAndExitCode(t *testing.T) {
	h := &Harness{ReconcilerPath: "echo"}

	output, exitCode, err := h.runSubprocess(context.Background(), "/tmp/does-not-matter.yaml")
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode)
	assert.True(t, strings.Contains(output, "reconcile"))
}

func TestRunSubprocess_NonZeroExitCodeCaptured(t *testing.T) {
	h := &Harness{ReconcilerPath: "false"}

	_, exitCode, err := h.runSubprocess(context.Background(), "/tmp/does-not-matter.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, exitCode)
}

func TestRunSubprocess_MissingExecutableErrors(t *testing.T) {
	h := &Harness{ReconcilerPath: "/no/such/binary-warden-reconciler"}

	_, _, err := h.runSubprocess(context.Background(), "/tmp/does-not-matter.yaml")
	assert.Error(t, err)
}

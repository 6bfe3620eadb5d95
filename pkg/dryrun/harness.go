package dryrun

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/go-github/v66/github"
)

const (
	checkRunName   = "Sheriff Dry Run"
	pollAttempts   = 10
	pollInterval   = 5 * time.Second
)

// PullRequestRef names the one pull request a dry run was triggered
// against.
type PullRequestRef struct {
	ConfigOrg  string
	ConfigRepo string
	Number     int
	HeadSHA    string
}

// Harness runs one dry-run pass end to end: poll for a merge commit,
// fetch the candidate config, spawn the reconciler subprocess in
// read-only mode, render its combined output as an SVG snapshot
// uploaded through a gist, and post the result as a completed check
// run on the pull request's head commit.
type Harness struct {
	GH         *github.Client
	ConfigPath string

	// ReconcilerPath is the executable invoked as the dry-run
	// subprocess; defaults to the running binary's own path (os.Args[0])
	// invoked with the "reconcile" subcommand, matching the CLI's own
	// entry point rather than shelling out to a separate tool.
	ReconcilerPath string
}

// NewHarness builds a Harness against an authenticated go-github client
// that also holds gist-creation scope (SHERIFF_GIST_TOKEN).
func NewHarness(gh *github.Client, configPath string) *Harness {
	reconciler := os.Args[0]
	return &Harness{GH: gh, ConfigPath: configPath, ReconcilerPath: reconciler}
}

// Handle runs the full §4.8 sequence for one pull-request delivery.
func (h *Harness) Handle(ctx context.Context, pr PullRequestRef) error {
	mergeSHA, err := h.pollForMergeSHA(ctx, pr)
	if err != nil {
		return h.postCompletedCheck(ctx, pr, "failure", "No merge sha available", "")
	}

	if _, _, err := h.GH.Checks.CreateCheckRun(ctx, pr.ConfigOrg, pr.ConfigRepo, github.CreateCheckRunOptions{
		Name:    checkRunName,
		HeadSHA: pr.HeadSHA,
		Status:  github.String("in_progress"),
	}); err != nil {
		return fmt.Errorf("posting in_progress check: %w", err)
	}

	tmpPath, err := h.writeCandidateConfig(ctx, pr, mergeSHA)
	if err != nil {
		return h.postCompletedCheck(ctx, pr, "action_required", "Something went wrong", "")
	}
	defer os.Remove(tmpPath)

	output, exitCode, err := h.runSubprocess(ctx, tmpPath)
	if err != nil {
		return h.postCompletedCheck(ctx, pr, "action_required", "Something went wrong", "")
	}

	rawURL, err := h.uploadSnapshot(ctx, output)
	if err != nil {
		return h.postCompletedCheck(ctx, pr, "action_required", "Something went wrong", "")
	}

	conclusion := "success"
	if exitCode != 0 {
		conclusion = "failure"
	}
	body := fmt.Sprintf(`<img src="%s" width="800" />`, rawURL)
	return h.postCompletedCheck(ctx, pr, conclusion, "", body)
}

func (h *Harness) pollForMergeSHA(ctx context.Context, pr PullRequestRef) (string, error) {
	for attempt := 0; attempt < pollAttempts; attempt++ {
		p, _, err := h.GH.PullRequests.Get(ctx, pr.ConfigOrg, pr.ConfigRepo, pr.Number)
		if err != nil {
			return "", err
		}
		if p.GetMergeableState() != "unknown" && p.GetMergeCommitSHA() != "" {
			return p.GetMergeCommitSHA(), nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return "", fmt.Errorf("merge sha did not become available after %d attempts", pollAttempts)
}

func (h *Harness) writeCandidateConfig(ctx context.Context, pr PullRequestRef, mergeSHA string) (string, error) {
	content, _, _, err := h.GH.Repositories.GetContents(ctx, pr.ConfigOrg, pr.ConfigRepo, h.ConfigPath, &github.RepositoryContentGetOptions{Ref: mergeSHA})
	if err != nil {
		return "", fmt.Errorf("fetching candidate config at %s: %w", mergeSHA, err)
	}
	decoded, err := content.GetContent()
	if err != nil {
		return "", err
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("sheriff-%s-%s.yaml", mergeSHA, pr.HeadSHA))
	if err := os.WriteFile(path, []byte(decoded), 0o600); err != nil {
		return "", fmt.Errorf("writing candidate config: %w", err)
	}
	return path, nil
}

// runSubprocess spawns the reconciler against the candidate config with
// the global dry-run flag on (no --do-it-for-real-this-time) and color
// output forced on. It inherits the parent process's environment
// verbatim aside from the config path override — see DESIGN.md's Open
// Questions decision on whether secrets should be filtered first.
func (h *Harness) runSubprocess(ctx context.Context, configPath string) (string, int, error) {
	cmd := exec.CommandContext(ctx, h.ReconcilerPath, "reconcile")
	cmd.Env = append(os.Environ(),
		"PERMISSIONS_FILE_LOCAL_PATH="+configPath,
		"FORCE_COLOR=1",
	)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return "", 0, err
	}
	return combined.String(), exitCode, nil
}

func (h *Harness) uploadSnapshot(ctx context.Context, output string) (string, error) {
	svg := ansiToSVG(output)
	filename := github.GistFilename("dry-run.svg")
	gist, _, err := h.GH.Gists.Create(ctx, &github.Gist{
		Description: github.String("Sheriff dry-run snapshot"),
		Public:      github.Bool(false),
		Files: map[github.GistFilename]github.GistFile{
			filename: {Content: github.String(svg)},
		},
	})
	if err != nil {
		return "", err
	}
	file, ok := gist.Files[filename]
	if !ok {
		return "", fmt.Errorf("uploaded gist missing expected file %q", filename)
	}
	return file.GetRawURL(), nil
}

func (h *Harness) postCompletedCheck(ctx context.Context, pr PullRequestRef, conclusion, summary, body string) error {
	output := &github.CheckRunOutput{Title: github.String(checkRunName)}
	if summary != "" {
		output.Summary = github.String(summary)
	}
	if body != "" {
		output.Summary = github.String(" ")
		output.Text = github.String(body)
	}
	_, _, err := h.GH.Checks.CreateCheckRun(ctx, pr.ConfigOrg, pr.ConfigRepo, github.CreateCheckRunOptions{
		Name:       checkRunName,
		HeadSHA:    pr.HeadSHA,
		Status:     github.String("completed"),
		Conclusion: github.String(conclusion),
		Output:     output,
	})
	return err
}

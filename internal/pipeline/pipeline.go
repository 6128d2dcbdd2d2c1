// Package pipeline executes the ordered step sequence for one task: clone,
// branch, edit, test, commit, push and pull request creation.
//
// Steps are strictly sequential within a task and every step is bounded by a
// timeout so a hung external call can never strand a task in running. Any
// step failure is terminal for the task; nothing here is fatal to the
// process.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/autopr/internal/editor"
	"github.com/harrison/autopr/internal/logger"
	"github.com/harrison/autopr/internal/models"
	"github.com/harrison/autopr/internal/store"
)

// RepoOps is the repository operations collaborator used by the pipeline.
// gitops.Client is the production implementation.
type RepoOps interface {
	Clone(ctx context.Context, repoURL, branch, dir string) error
	CreateBranch(ctx context.Context, dir, branch string) error
	ConfigureIdentity(ctx context.Context, dir, name, email string) error
	CommitAll(ctx context.Context, dir, message string) error
	Push(ctx context.Context, dir, branch string) error
	OpenPullRequest(ctx context.Context, repoURL, head, base, title, body string) (string, error)
}

// StepError identifies which pipeline step failed and why.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes the pipeline for individual tasks. Create once and share
// across tasks; per-task state lives on the stack of Run.
type Runner struct {
	Repo   RepoOps
	Editor editor.Producer
	Store  store.Store
	Log    logger.Logger

	// WorkDir is the parent directory for per-task workspaces.
	WorkDir string

	// StepTimeout bounds each external operation except the test command.
	StepTimeout time.Duration

	// TestTimeout bounds the user-supplied test command.
	TestTimeout time.Duration

	// CommitterName and CommitterEmail are configured in each workspace
	// before committing.
	CommitterName  string
	CommitterEmail string
}

// Run drives rec through the pipeline to a terminal state. It is intended to
// run in its own goroutine; all failures are reported by persisting a failed
// record, never by returning.
//
// The workspace directory is derived from the task id, so concurrent tasks
// never collide, and is removed on every exit path.
func (r *Runner) Run(ctx context.Context, rec models.TaskRecord) {
	if err := rec.Transition(models.StatusRunning, ""); err != nil {
		r.Log.Errorf("task %s: %v", rec.ID, err)
		return
	}
	r.persist(ctx, rec)

	workspace := filepath.Join(r.WorkDir, "task-"+rec.ID)
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			r.Log.Warnf("task %s: failed to remove workspace: %v", rec.ID, err)
		}
	}()

	head := "autopr/" + shortID(rec.ID)
	var warning string

	err := r.runStep(ctx, "clone", r.StepTimeout, func(ctx context.Context) error {
		return r.Repo.Clone(ctx, rec.RepoURL, rec.Branch, workspace)
	})
	if err == nil {
		err = r.runStep(ctx, "branch", r.StepTimeout, func(ctx context.Context) error {
			return r.Repo.CreateBranch(ctx, workspace, head)
		})
	}
	if err == nil {
		err = r.runStep(ctx, "edit", r.StepTimeout, func(ctx context.Context) error {
			files, editErr := r.Editor.Produce(ctx, rec.Prompt, workspace)
			if editErr != nil {
				return editErr
			}
			r.Log.Debugf("task %s: edited %s", rec.ID, strings.Join(files, ", "))
			return nil
		})
	}
	if err == nil && rec.TestCommand != "" {
		err = r.runStep(ctx, "test", r.TestTimeout, func(ctx context.Context) error {
			var testErr error
			warning, testErr = r.runTestCommand(ctx, rec, workspace)
			return testErr
		})
	}
	if err == nil {
		err = r.runStep(ctx, "commit", r.StepTimeout, func(ctx context.Context) error {
			if cfgErr := r.Repo.ConfigureIdentity(ctx, workspace, r.CommitterName, r.CommitterEmail); cfgErr != nil {
				return cfgErr
			}
			return r.Repo.CommitAll(ctx, workspace, "Agent: "+rec.Prompt)
		})
	}
	if err == nil {
		err = r.runStep(ctx, "push", r.StepTimeout, func(ctx context.Context) error {
			return r.Repo.Push(ctx, workspace, head)
		})
	}

	var prURL string
	if err == nil {
		err = r.runStep(ctx, "pull-request", r.StepTimeout, func(ctx context.Context) error {
			var prErr error
			prURL, prErr = r.Repo.OpenPullRequest(ctx, rec.RepoURL, head, rec.Branch,
				prTitle(rec.Prompt),
				"Changes proposed by agent for prompt: "+rec.Prompt)
			return prErr
		})
	}

	if err != nil {
		r.Log.Warnf("task %s: %v", rec.ID, err)
		if terr := rec.Transition(models.StatusFailed, err.Error()); terr != nil {
			r.Log.Errorf("task %s: %v", rec.ID, terr)
			return
		}
		r.persist(ctx, rec)
		return
	}

	result := "Pull request created: " + prURL
	if warning != "" {
		result += "\n" + warning
	}
	if terr := rec.Transition(models.StatusCompleted, result); terr != nil {
		r.Log.Errorf("task %s: %v", rec.ID, terr)
		return
	}
	r.persist(ctx, rec)
	r.Log.Infof("task %s: completed, %s", rec.ID, prURL)
}

// runStep executes one pipeline step under its timeout, converting failures
// into StepErrors that name the step.
func (r *Runner) runStep(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := fn(stepCtx); err != nil {
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			return &StepError{Step: name, Err: fmt.Errorf("timed out after %v: %w", timeout, err)}
		}
		return &StepError{Step: name, Err: err}
	}
	return nil
}

// runTestCommand runs the task's test command inside the workspace. When the
// command's binary cannot be resolved, a no-op is substituted and a warning
// returned instead of failing the task; a resolvable command that exits
// non-zero fails the task.
func (r *Runner) runTestCommand(ctx context.Context, rec models.TaskRecord, workspace string) (warning string, err error) {
	command := rec.TestCommand

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	if _, lookErr := exec.LookPath(fields[0]); lookErr != nil {
		warning = fmt.Sprintf("warning: test command %q not found in execution environment; tests were skipped", fields[0])
		r.Log.Warnf("task %s: %s", rec.ID, warning)
		command = "true"
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workspace
	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		return warning, fmt.Errorf("test command %q failed: %w: %s",
			rec.TestCommand, runErr, strings.TrimSpace(string(output)))
	}
	return warning, nil
}

// persist writes the record snapshot, logging storage failures. A lost update
// degrades external visibility but must not abort the pipeline.
func (r *Runner) persist(ctx context.Context, rec models.TaskRecord) {
	if err := r.Store.Put(ctx, rec); err != nil {
		r.Log.Errorf("task %s: failed to persist status %s: %v", rec.ID, rec.Status, err)
	}
}

// prTitle builds the pull request title from the prompt, truncated the way
// reviewers expect to see it in list views. Truncation counts runes so a
// multi-byte character is never cut mid-sequence.
func prTitle(prompt string) string {
	const maxLen = 50
	if runes := []rune(prompt); len(runes) > maxLen {
		prompt = string(runes[:maxLen])
	}
	return "Agent PR: " + prompt
}

// shortID returns the workspace-friendly prefix of a task id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Package editor turns a task prompt into concrete file modifications inside
// a task workspace. Producers are opaque to the pipeline: given a prompt and
// a workspace path they return the changed file paths or fail.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Producer applies a prompt to the workspace at dir and reports which files
// it modified, relative to dir.
type Producer interface {
	Produce(ctx context.Context, prompt, dir string) ([]string, error)
}

// NoteProducer records the requested change as a note appended to the
// repository's README.md, creating the file when absent.
type NoteProducer struct{}

// Produce appends the prompt to README.md.
func (NoteProducer) Produce(_ context.Context, prompt, dir string) ([]string, error) {
	readme := filepath.Join(dir, "README.md")

	f, err := os.OpenFile(readme, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open README.md: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "\n\n# Agent Change: %s\n", prompt); err != nil {
		return nil, fmt.Errorf("failed to append to README.md: %w", err)
	}
	return []string{"README.md"}, nil
}

// CommandProducer delegates the edit to an external agent CLI invoked inside
// the workspace with the prompt as its argument. Changed files are read back
// from git afterwards.
type CommandProducer struct {
	// Command is the agent binary to invoke, e.g. "claude".
	Command string

	// Args are passed before the prompt.
	Args []string
}

// Produce runs the agent command in dir and returns the files it touched.
// An agent run that changes nothing is treated as a failure: the pipeline has
// nothing to commit.
func (p *CommandProducer) Produce(ctx context.Context, prompt, dir string) ([]string, error) {
	if p.Command == "" {
		return nil, fmt.Errorf("no agent command configured")
	}

	args := append(append([]string{}, p.Args...), prompt)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("agent command failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	changed, err := changedFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return nil, fmt.Errorf("agent command made no changes")
	}
	return changed, nil
}

// changedFiles lists paths reported dirty by git status --porcelain.
func changedFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git status: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return parsePorcelain(string(output)), nil
}

// parsePorcelain extracts file paths from git status --porcelain output.
// Renames and copies report "old -> new"; only the new path is kept.
func parsePorcelain(output string) []string {
	var files []string
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		// Porcelain format: two status columns, a space, then the path.
		path := strings.TrimSpace(line[3:])
		if _, after, found := strings.Cut(path, " -> "); found {
			path = after
		}
		files = append(files, path)
	}
	return files
}

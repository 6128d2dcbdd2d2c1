// Package models defines the task record persisted for every submitted job
// and the lifecycle rules that govern it.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a task.
// Transitions are forward-only: queued -> running -> {completed|failed}.
type Status string

const (
	// StatusQueued means the task has been accepted but the pipeline has not started.
	StatusQueued Status = "queued"
	// StatusRunning means the pipeline is executing.
	StatusRunning Status = "running"
	// StatusCompleted means the pipeline finished and a pull request was opened.
	StatusCompleted Status = "completed"
	// StatusFailed means a pipeline step failed or timed out.
	StatusFailed Status = "failed"
)

// Terminal returns true if no further transition can occur from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid returns true if s is one of the four known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another is legal.
// A task never revisits queued or running once it has left them.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// TaskRecord is the complete persisted snapshot of one submitted task.
// The record is created once by the manager and mutated only by the task's
// own pipeline run; readers always observe a full, self-consistent copy.
type TaskRecord struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	RepoURL     string    `json:"repo_url"`
	Branch      string    `json:"branch"`
	TestCommand string    `json:"test_command,omitempty"`
	Status      Status    `json:"status"`
	Result      string    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks that a record carries the fields required at submission.
func (r *TaskRecord) Validate() error {
	if r.Prompt == "" {
		return errors.New("task prompt is required")
	}
	if r.RepoURL == "" {
		return errors.New("task repo_url is required")
	}
	if r.Branch == "" {
		return errors.New("task branch is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid task status %q", r.Status)
	}
	return nil
}

// Transition moves the record to a new status, updating the bookkeeping
// timestamp. It returns an error if the move would violate the forward-only
// lifecycle or set a result on a non-terminal state.
func (r *TaskRecord) Transition(to Status, result string) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("illegal status transition %s -> %s for task %s", r.Status, to, r.ID)
	}
	if result != "" && !to.Terminal() {
		return fmt.Errorf("result may only be set on a terminal status, got %s", to)
	}
	r.Status = to
	if to.Terminal() {
		r.Result = result
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

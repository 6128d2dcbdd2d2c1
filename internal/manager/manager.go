// Package manager is the public face of the task engine: it accepts
// submissions, dispatches each task to a background pipeline run and answers
// status and result lookups from the store.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/autopr/internal/logger"
	"github.com/harrison/autopr/internal/models"
	"github.com/harrison/autopr/internal/store"
)

// ErrValidation marks submissions rejected before a task was created.
var ErrValidation = errors.New("invalid submission")

// ErrNotFound is returned for lookups of unknown task ids.
var ErrNotFound = store.ErrNotFound

// TaskRunner executes the pipeline for one record to a terminal state.
// pipeline.Runner is the production implementation.
type TaskRunner interface {
	Run(ctx context.Context, rec models.TaskRecord)
}

// SubmitRequest carries the caller-supplied task inputs.
type SubmitRequest struct {
	Prompt      string
	RepoURL     string
	Branch      string
	TestCommand string
}

// Manager creates tasks and serializes all engine access to the store.
type Manager struct {
	store  store.Store
	runner TaskRunner
	log    logger.Logger
	wg     sync.WaitGroup
}

// New creates a Manager executing pipelines through runner.
func New(st store.Store, runner TaskRunner, log logger.Logger) *Manager {
	return &Manager{
		store:  st,
		runner: runner,
		log:    log,
	}
}

// Submit validates the request, persists a fresh queued record and hands it
// to a background pipeline run. It returns the new task id without waiting
// for any pipeline work; the only blocking operation is the initial persist.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	branch := req.Branch
	if branch == "" {
		branch = "main"
	}

	now := time.Now().UTC()
	rec := models.TaskRecord{
		ID:          uuid.NewString(),
		Prompt:      req.Prompt,
		RepoURL:     req.RepoURL,
		Branch:      branch,
		TestCommand: req.TestCommand,
		Status:      models.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := m.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to persist new task: %w", err)
	}
	m.log.Infof("task %s: accepted for %s", rec.ID, rec.RepoURL)

	// The pipeline outlives the HTTP request, so it gets its own context.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runner.Run(context.Background(), rec)
	}()

	return rec.ID, nil
}

// GetStatus returns the task's current lifecycle state.
func (m *Manager) GetStatus(ctx context.Context, id string) (models.Status, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Status, nil
}

// GetResult returns the task's current status and result snapshot.
func (m *Manager) GetResult(ctx context.Context, id string) (models.TaskRecord, error) {
	return m.store.Get(ctx, id)
}

// SweepStale marks tasks left non-terminal by a previous process as failed.
// Called once at startup, before the HTTP surface accepts new work: a task
// whose pipeline died with the process can never progress, and leaving it
// running forever would violate the forward-only lifecycle promise.
func (m *Manager) SweepStale(ctx context.Context) (int, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks for sweep: %w", err)
	}

	swept := 0
	for _, rec := range recs {
		if rec.Status.Terminal() {
			continue
		}
		if err := rec.Transition(models.StatusFailed, "task interrupted by service restart before completion"); err != nil {
			m.log.Errorf("task %s: sweep: %v", rec.ID, err)
			continue
		}
		if err := m.store.Put(ctx, rec); err != nil {
			m.log.Errorf("task %s: sweep: failed to persist: %v", rec.ID, err)
			continue
		}
		m.log.Warnf("task %s: marked failed by startup sweep", rec.ID)
		swept++
	}
	return swept, nil
}

// Wait blocks until all in-flight pipeline runs have finished. Used by
// shutdown and tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

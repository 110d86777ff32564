// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package macro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// ============================================================================
// RUN STATE
// ============================================================================

// RunStatus tracks the lifecycle of a macro run.
type RunStatus int

const (
	RunPending RunStatus = iota
	RunRunning
	RunComplete
	RunFailed
	RunCanceled
)

// String returns a human-readable run status.
func (s RunStatus) String() string {
	switch s {
	case RunPending:
		return "Pending"
	case RunRunning:
		return "Running"
	case RunComplete:
		return "Complete"
	case RunFailed:
		return "Failed"
	case RunCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// StepStatus tracks the lifecycle of a single step within a run.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// String returns a human-readable step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "Pending"
	case StepRunning:
		return "Running"
	case StepComplete:
		return "Complete"
	case StepFailed:
		return "Failed"
	case StepSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// StepResult records the outcome of one submitted step.
type StepResult struct {
	Name      string
	Prompt    string
	RequestID string
	Response  string
	Status    StepStatus
	Err       error
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns how long the step took, or 0 if it never ran.
func (r *StepResult) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Run is the record of a single macro execution.
type Run struct {
	ID          string
	Macro       string
	Args        map[string]string
	Steps       []StepResult
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt time.Time

	mu sync.RWMutex
}

// CurrentStatus returns the run status under the run's lock.
func (r *Run) CurrentStatus() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// Progress returns completed and total step counts.
func (r *Run) Progress() (completed, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total = len(r.Steps)
	for _, s := range r.Steps {
		if s.Status == StepComplete {
			completed++
		}
	}
	return completed, total
}

// Summary returns a one-line description of the run.
func (r *Run) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	done := 0
	for _, s := range r.Steps {
		if s.Status == StepComplete {
			done++
		}
	}
	return fmt.Sprintf("%s: %s (%d/%d steps)", r.Macro, r.Status, done, len(r.Steps))
}

// StepResults returns a copy of the per-step results.
func (r *Run) StepResults() []StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StepResult, len(r.Steps))
	copy(out, r.Steps)
	return out
}

func (r *Run) setStep(i int, update func(*StepResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= 0 && i < len(r.Steps) {
		update(&r.Steps[i])
	}
}

func (r *Run) setStatus(status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	if status == RunComplete || status == RunFailed || status == RunCanceled {
		r.CompletedAt = time.Now()
	}
}

// ============================================================================
// RUNNER
// ============================================================================

// SubmitFunc sends one expanded step to the orchestrator and blocks
// until the request finishes. It returns the server request id and the
// final response text. Implementations route through the same path as
// typed input so runs show up in the tracker and session history.
type SubmitFunc func(ctx context.Context, step Step) (requestID, response string, err error)

// ProgressCallback is invoked after each step transition. step is
// 1-based; status is the step's display status.
type ProgressCallback func(step, total int, status string)

// Runner executes macros one step at a time.
type Runner struct {
	mu              sync.Mutex
	submit          SubmitFunc
	onProgress      ProgressCallback
	continueOnError bool
	cancel          context.CancelFunc
	active          *Run
}

// NewRunner creates a runner that submits steps through submit.
func NewRunner(submit SubmitFunc) *Runner {
	return &Runner{submit: submit}
}

// SetProgressCallback registers a callback fired on step transitions.
func (r *Runner) SetProgressCallback(cb ProgressCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onProgress = cb
}

// SetContinueOnError controls whether a failed step aborts the run or
// marks the step failed and moves on.
func (r *Runner) SetContinueOnError(continueOnError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.continueOnError = continueOnError
}

// Active returns the run currently executing, or nil.
func (r *Runner) Active() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Cancel stops the active run after the in-flight step returns.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Run expands the macro with args and submits each step in order. It
// blocks until the run finishes and returns the run record. The record
// is also returned on error so partial results stay inspectable.
func (r *Runner) Run(ctx context.Context, m *Macro, args map[string]string) (*Run, error) {
	steps, err := m.Expand(args)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.New().String(),
		Macro:     m.Name,
		Args:      args,
		Steps:     make([]StepResult, len(steps)),
		Status:    RunPending,
		StartedAt: time.Now(),
	}
	for i, s := range steps {
		run.Steps[i] = StepResult{Name: m.StepName(i), Prompt: s.Prompt, Status: StepPending}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.active != nil && r.active.CurrentStatus() == RunRunning {
		r.mu.Unlock()
		return nil, fmt.Errorf("a macro run is already in progress")
	}
	r.cancel = cancel
	r.active = run
	submit := r.submit
	continueOnError := r.continueOnError
	r.mu.Unlock()

	run.setStatus(RunRunning)
	logging.Infof("Starting macro run %s (%s, %d steps)", run.ID, m.Name, len(steps))

	failed := false
	for i, step := range steps {
		select {
		case <-runCtx.Done():
			r.finishCanceled(run, i)
			return run, runCtx.Err()
		default:
		}

		run.setStep(i, func(sr *StepResult) {
			sr.Status = StepRunning
			sr.StartTime = time.Now()
		})
		r.notifyProgress(i+1, len(steps), StepRunning.String())

		requestID, response, err := submit(runCtx, step)
		if err != nil {
			run.setStep(i, func(sr *StepResult) {
				sr.Status = StepFailed
				sr.Err = err
				sr.EndTime = time.Now()
			})
			r.notifyProgress(i+1, len(steps), StepFailed.String())
			logging.Warnf("Macro run %s: step %d failed: %v", run.ID, i+1, err)

			if runCtx.Err() != nil {
				r.finishCanceled(run, i+1)
				return run, runCtx.Err()
			}
			failed = true
			if !continueOnError {
				r.skipRemaining(run, i+1)
				run.setStatus(RunFailed)
				return run, fmt.Errorf("macro %s failed at step %d: %w", m.Name, i+1, err)
			}
			continue
		}

		run.setStep(i, func(sr *StepResult) {
			sr.Status = StepComplete
			sr.RequestID = requestID
			sr.Response = response
			sr.EndTime = time.Now()
		})
		r.notifyProgress(i+1, len(steps), StepComplete.String())
	}

	if failed {
		run.setStatus(RunFailed)
		return run, fmt.Errorf("macro %s finished with failed steps", m.Name)
	}
	run.setStatus(RunComplete)
	logging.Infof("Macro run %s complete", run.ID)
	return run, nil
}

// finishCanceled marks every step from index on as skipped and the run
// as canceled.
func (r *Runner) finishCanceled(run *Run, from int) {
	r.skipRemaining(run, from)
	run.setStatus(RunCanceled)
	logging.Infof("Macro run %s canceled", run.ID)
}

func (r *Runner) skipRemaining(run *Run, from int) {
	for i := from; i < len(run.Steps); i++ {
		run.setStep(i, func(sr *StepResult) {
			if sr.Status == StepPending {
				sr.Status = StepSkipped
			}
		})
	}
}

// notifyProgress fires the callback outside any run lock.
func (r *Runner) notifyProgress(step, total int, status string) {
	r.mu.Lock()
	cb := r.onProgress
	r.mu.Unlock()
	if cb != nil {
		cb(step, total, status)
	}
}

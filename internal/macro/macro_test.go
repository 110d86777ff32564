// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package macro

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testMacro() *Macro {
	return &Macro{
		Name:        "triage",
		Description: "Standard incident triage questions",
		Steps: []Step{
			{Name: "summary", Prompt: "Summarize the current state of {service}"},
			{Name: "errors", Prompt: "List recent errors for {service} in {env}", Mode: "direct"},
			{Prompt: "Suggest next steps"},
		},
	}
}

// ============================================================================
// DEFINITION TESTS
// ============================================================================

func TestMacro_Validate(t *testing.T) {
	require.NoError(t, testMacro().Validate())

	tests := []struct {
		name   string
		mutate func(*Macro)
	}{
		{"empty name", func(m *Macro) { m.Name = "" }},
		{"name with slash", func(m *Macro) { m.Name = "a/b" }},
		{"name with dots", func(m *Macro) { m.Name = ".." }},
		{"no steps", func(m *Macro) { m.Steps = nil }},
		{"blank prompt", func(m *Macro) { m.Steps[1].Prompt = "   " }},
		{"unknown mode", func(m *Macro) { m.Steps[0].Mode = "turbo" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMacro()
			tt.mutate(m)
			require.Error(t, m.Validate())
		})
	}
}

func TestMacro_Placeholders(t *testing.T) {
	m := testMacro()
	require.Equal(t, []string{"env", "service"}, m.Placeholders(),
		"placeholders should be deduplicated and sorted")

	plain := &Macro{Name: "plain", Steps: []Step{{Prompt: "no markers here"}}}
	require.Empty(t, plain.Placeholders())
}

func TestMacro_Expand(t *testing.T) {
	m := testMacro()
	steps, err := m.Expand(map[string]string{"service": "billing", "env": "prod"})
	require.NoError(t, err)
	require.Len(t, steps, 3)
	require.Equal(t, "Summarize the current state of billing", steps[0].Prompt)
	require.Equal(t, "List recent errors for billing in prod", steps[1].Prompt)
	require.Equal(t, "direct", steps[1].Mode, "step overrides should survive expansion")
	require.Equal(t, "Suggest next steps", steps[2].Prompt)
}

func TestMacro_ExpandMissingArgs(t *testing.T) {
	m := testMacro()
	_, err := m.Expand(map[string]string{"service": "billing"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "env", "error should name the missing argument")
}

func TestMacro_ExpandExtraArgsIgnored(t *testing.T) {
	m := &Macro{Name: "one", Steps: []Step{{Prompt: "hello {who}"}}}
	steps, err := m.Expand(map[string]string{"who": "world", "unused": "x"})
	require.NoError(t, err)
	require.Equal(t, "hello world", steps[0].Prompt)
}

func TestMacro_StepName(t *testing.T) {
	m := testMacro()
	require.Equal(t, "summary", m.StepName(0))
	require.Equal(t, "step 3", m.StepName(2))
	require.Equal(t, "step 10", m.StepName(9))
}

// ============================================================================
// STORE TESTS
// ============================================================================

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(testMacro()))

	got, err := store.Load("triage")
	require.NoError(t, err)
	require.Equal(t, "triage", got.Name)
	require.Equal(t, "Standard incident triage questions", got.Description)
	require.Len(t, got.Steps, 3)
	require.Equal(t, "direct", got.Steps[1].Mode)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_NameFollowsFilename(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, store.Save(testMacro()))

	// Renaming the file on disk renames the macro.
	require.NoError(t, os.Rename(store.Path("triage"), store.Path("oncall")))
	got, err := store.Load("oncall")
	require.NoError(t, err)
	require.Equal(t, "oncall", got.Name)
}

func TestStore_ListSortedAndSkipsBad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(&Macro{Name: "zeta", Steps: []Step{{Prompt: "z"}}}))
	require.NoError(t, store.Save(&Macro{Name: "alpha", Steps: []Step{{Prompt: "a"}}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("steps = nonsense ["), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))

	names, err := store.Names()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestStore_ListEmptyDirMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	macros, err := store.List()
	require.NoError(t, err)
	require.Empty(t, macros)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testMacro()))
	require.NoError(t, store.Delete("triage"))

	_, err := store.Load("triage")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, store.Delete("triage"), ErrNotFound)
}

// ============================================================================
// RUNNER TESTS
// ============================================================================

func TestRunner_SequentialOrder(t *testing.T) {
	var mu sync.Mutex
	var prompts []string
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		mu.Lock()
		prompts = append(prompts, step.Prompt)
		n := len(prompts)
		mu.Unlock()
		return fmt.Sprintf("req_%d", n), "ok", nil
	})

	run, err := runner.Run(context.Background(), testMacro(),
		map[string]string{"service": "billing", "env": "prod"})
	require.NoError(t, err)
	require.Equal(t, RunComplete, run.CurrentStatus())
	require.NotEmpty(t, run.ID)

	require.Equal(t, []string{
		"Summarize the current state of billing",
		"List recent errors for billing in prod",
		"Suggest next steps",
	}, prompts)

	done, total := run.Progress()
	require.Equal(t, 3, done)
	require.Equal(t, 3, total)

	results := run.StepResults()
	require.Equal(t, "req_1", results[0].RequestID)
	require.Equal(t, StepComplete, results[2].Status)
	require.False(t, results[0].StartTime.IsZero())
	require.False(t, results[0].EndTime.IsZero())
}

func TestRunner_StopsOnFailure(t *testing.T) {
	calls := 0
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		calls++
		if calls == 2 {
			return "", "", errors.New("orchestrator rejected request")
		}
		return "req_x", "ok", nil
	})

	run, err := runner.Run(context.Background(), testMacro(),
		map[string]string{"service": "billing", "env": "prod"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "step 2")
	require.Equal(t, 2, calls, "third step should not be submitted")

	require.Equal(t, RunFailed, run.CurrentStatus())
	results := run.StepResults()
	require.Equal(t, StepComplete, results[0].Status)
	require.Equal(t, StepFailed, results[1].Status)
	require.Equal(t, StepSkipped, results[2].Status)
}

func TestRunner_ContinueOnError(t *testing.T) {
	calls := 0
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		calls++
		if calls == 2 {
			return "", "", errors.New("transient failure")
		}
		return "req_x", "ok", nil
	})
	runner.SetContinueOnError(true)

	run, err := runner.Run(context.Background(), testMacro(),
		map[string]string{"service": "billing", "env": "prod"})
	require.Error(t, err, "a run with failed steps still reports failure")
	require.Equal(t, 3, calls, "remaining steps should run after a failure")

	results := run.StepResults()
	require.Equal(t, StepFailed, results[1].Status)
	require.Equal(t, StepComplete, results[2].Status)
	require.Equal(t, RunFailed, run.CurrentStatus())
}

func TestRunner_MissingArgsFailFast(t *testing.T) {
	calls := 0
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		calls++
		return "", "", nil
	})

	_, err := runner.Run(context.Background(), testMacro(), nil)
	require.Error(t, err)
	require.Zero(t, calls, "nothing should be submitted when expansion fails")
}

func TestRunner_CancelMidRun(t *testing.T) {
	started := make(chan struct{})
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		close(started)
		<-ctx.Done()
		return "", "", ctx.Err()
	})

	type result struct {
		run *Run
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		run, err := runner.Run(context.Background(), testMacro(),
			map[string]string{"service": "billing", "env": "prod"})
		resultCh <- result{run, err}
	}()

	<-started
	runner.Cancel()

	select {
	case res := <-resultCh:
		require.Error(t, res.err)
		require.Equal(t, RunCanceled, res.run.CurrentStatus())
		results := res.run.StepResults()
		require.Equal(t, StepFailed, results[0].Status)
		require.Equal(t, StepSkipped, results[1].Status)
		require.Equal(t, StepSkipped, results[2].Status)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		<-release
		return "req_x", "ok", nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = runner.Run(context.Background(), testMacro(),
			map[string]string{"service": "billing", "env": "prod"})
	}()

	<-started
	_, err := runner.Run(context.Background(), &Macro{Name: "other", Steps: []Step{{Prompt: "x"}}}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already in progress")

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
}

func TestRunner_ProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var events []string
	runner := NewRunner(func(ctx context.Context, step Step) (string, string, error) {
		return "req_x", "ok", nil
	})
	runner.SetProgressCallback(func(step, total int, status string) {
		mu.Lock()
		events = append(events, fmt.Sprintf("%d/%d %s", step, total, status))
		mu.Unlock()
	})

	m := &Macro{Name: "two", Steps: []Step{{Prompt: "a"}, {Prompt: "b"}}}
	_, err := runner.Run(context.Background(), m, nil)
	require.NoError(t, err)

	require.Equal(t, []string{
		"1/2 Running", "1/2 Complete",
		"2/2 Running", "2/2 Complete",
	}, events)
}

// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal holds integration tests that drive the real HTTP
// client against the stub orchestrator: submission, streaming, the
// event feed, history reconciliation, and the optimistic tracking
// pipeline end to end.
package internal

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/server"
	"github.com/jeranaias/cockpit-tui/internal/track"
)

// =============================================================================
// HARNESS
// =============================================================================

// startStub runs the stub orchestrator behind httptest and returns a
// client pointed at it. Pacing is disabled so queued requests finish
// immediately.
func startStub(t *testing.T) (*httptest.Server, *api.Client) {
	t.Helper()
	s := server.NewServer(0).WithStepDelay(0)
	t.Cleanup(s.Close)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: ts.URL,
		Timeout: 5 * time.Second,
	})
	return ts, client
}

// waitTerminal polls history until the request reaches a terminal
// status.
func waitTerminal(t *testing.T, client *api.Client, sessionID, requestID string) api.RequestRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		records, err := client.History(context.Background(), sessionID, 50)
		if err == nil {
			for _, rec := range records {
				if rec.RequestID == requestID && rec.Status.IsTerminal() {
					return rec
				}
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("request %s never reached a terminal status", requestID)
	return api.RequestRecord{}
}

// =============================================================================
// CLIENT <-> SERVER ROUND TRIPS
// =============================================================================

func TestQueuedRoundTrip(t *testing.T) {
	_, client := startStub(t)
	ctx := context.Background()

	if err := client.CheckHealth(ctx); err != nil {
		t.Fatalf("CheckHealth() = %v, want nil", err)
	}

	resp, err := client.Submit(ctx, api.SubmitRequest{
		SessionID: "sess_rt",
		Prompt:    "check disk usage",
		ChatMode:  api.ModeNormal,
	})
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if resp.RequestID == "" {
		t.Fatal("Submit() returned empty request id")
	}

	rec := waitTerminal(t, client, "sess_rt", resp.RequestID)
	if rec.Status != api.StatusCompleted {
		t.Errorf("status = %s, want %s (error %q)", rec.Status, api.StatusCompleted, rec.Error)
	}
	if want := "(normal) check disk usage"; rec.Response != want {
		t.Errorf("response = %q, want %q", rec.Response, want)
	}
	if rec.Prompt != "check disk usage" {
		t.Errorf("prompt = %q, want original prompt", rec.Prompt)
	}

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() = %v", err)
	}
	found := false
	for _, s := range sessions {
		if s.SessionID == "sess_rt" {
			found = true
			if s.RequestCount != 1 {
				t.Errorf("RequestCount = %d, want 1", s.RequestCount)
			}
		}
	}
	if !found {
		t.Error("ListSessions() missing sess_rt")
	}
}

func TestDirectStreamRoundTrip(t *testing.T) {
	_, client := startStub(t)

	acc := api.NewStreamAccumulator()
	err := client.SubmitStream(context.Background(), api.SubmitRequest{
		SessionID: "sess_stream",
		Prompt:    "tail the error log",
	}, acc.Add)
	if err != nil {
		t.Fatalf("SubmitStream() = %v", err)
	}
	if acc.Err != nil {
		t.Fatalf("stream error = %v", acc.Err)
	}
	if !acc.Done {
		t.Error("accumulator never saw the done chunk")
	}
	if want := "(direct) tail the error log"; acc.GetContent() != want {
		t.Errorf("content = %q, want %q", acc.GetContent(), want)
	}
	if acc.RequestID == "" {
		t.Error("accumulator never captured the request id")
	}

	// The direct path lands in history too.
	rec := waitTerminal(t, client, "sess_stream", acc.RequestID)
	if rec.Status != api.StatusCompleted {
		t.Errorf("history status = %s, want %s", rec.Status, api.StatusCompleted)
	}
}

func TestQueuePauseHoldsThenResumes(t *testing.T) {
	_, client := startStub(t)
	ctx := context.Background()

	if _, err := client.PauseQueue(ctx); err != nil {
		t.Fatalf("PauseQueue() = %v", err)
	}

	resp, err := client.Submit(ctx, api.SubmitRequest{
		SessionID: "sess_pause",
		Prompt:    "held work",
		ChatMode:  api.ModeNormal,
	})
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	// Paused queue must not run the request.
	time.Sleep(150 * time.Millisecond)
	records, err := client.History(ctx, "sess_pause", 10)
	if err != nil {
		t.Fatalf("History() = %v", err)
	}
	for _, rec := range records {
		if rec.RequestID == resp.RequestID && rec.Status.IsTerminal() {
			t.Fatalf("request finished while queue was paused (status %s)", rec.Status)
		}
	}

	status, err := client.ResumeQueue(ctx)
	if err != nil {
		t.Fatalf("ResumeQueue() = %v", err)
	}
	if status.Paused {
		t.Error("queue still paused after resume")
	}

	rec := waitTerminal(t, client, "sess_pause", resp.RequestID)
	if rec.Status != api.StatusCompleted {
		t.Errorf("status after resume = %s, want %s", rec.Status, api.StatusCompleted)
	}
}

func TestRuntimeActivationThroughClient(t *testing.T) {
	_, client := startStub(t)
	ctx := context.Background()

	runtimes, err := client.ListRuntimes(ctx)
	if err != nil {
		t.Fatalf("ListRuntimes() = %v", err)
	}
	if len(runtimes) == 0 {
		t.Fatal("stub advertises no runtimes")
	}

	var target string
	for _, rt := range runtimes {
		if !rt.Active && rt.Healthy {
			target = rt.Name
			break
		}
	}
	if target == "" {
		t.Skip("no inactive healthy runtime to activate")
	}

	if err := client.ActivateRuntime(ctx, target); err != nil {
		t.Fatalf("ActivateRuntime(%s) = %v", target, err)
	}

	runtimes, err = client.ListRuntimes(ctx)
	if err != nil {
		t.Fatalf("ListRuntimes() = %v", err)
	}
	for _, rt := range runtimes {
		if rt.Name == target && !rt.Active {
			t.Errorf("runtime %s not active after activation", target)
		}
		if rt.Name != target && rt.Active {
			t.Errorf("runtime %s still active, want only %s", rt.Name, target)
		}
	}
}

// =============================================================================
// EVENT FEED
// =============================================================================

func TestEventFeedSeesQueuedLifecycle(t *testing.T) {
	ts, client := startStub(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := events.NewFeed(&api.ClientConfig{BaseURL: ts.URL}, "sess_feed")
	ch := feed.Stream(ctx)

	resp, err := client.Submit(context.Background(), api.SubmitRequest{
		SessionID: "sess_feed",
		Prompt:    "watch me run",
		ChatMode:  api.ModeNormal,
	})
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	var got []events.Event
	timeout := time.After(5 * time.Second)
	for {
		var done bool
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("feed channel closed before the request finished")
			}
			if ev.Err != nil || ev.Type == events.EventHeartbeat {
				continue
			}
			if ev.RequestID != resp.RequestID {
				continue
			}
			got = append(got, ev)
			done = ev.Type == events.EventFinished
		case <-timeout:
			t.Fatalf("feed never delivered request_finished (saw %d events)", len(got))
		}
		if done {
			break
		}
	}

	if got[0].Type != events.EventQueued {
		t.Errorf("first event = %s, want %s", got[0].Type, events.EventQueued)
	}
	var lastSeq int64
	var sawStarted bool
	for _, ev := range got {
		if ev.Seq <= lastSeq {
			t.Errorf("seq %d not increasing (previous %d)", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
		if ev.Type == events.EventStarted {
			sawStarted = true
		}
	}
	if !sawStarted {
		t.Error("feed skipped request_started")
	}

	final := got[len(got)-1]
	if final.Status != api.StatusCompleted {
		t.Errorf("final status = %s, want %s", final.Status, api.StatusCompleted)
	}
	if want := "(normal) watch me run"; final.Response != want {
		t.Errorf("final response = %q, want %q", final.Response, want)
	}
}

// =============================================================================
// OPTIMISTIC PIPELINE
// =============================================================================

// TestOptimisticPipelineSettles walks the full client-side flow the
// TUI performs for a queued submission: optimistic enqueue, board
// task, link to the server id, reconcile history, notification, prune.
func TestOptimisticPipelineSettles(t *testing.T) {
	_, client := startStub(t)
	ctx := context.Background()

	tracker := track.New()
	board := queue.NewBoard(10)

	const prompt = "rotate the api keys"
	clientID := tracker.Enqueue(prompt, track.Options{ChatMode: "normal"})
	task := queue.NewTask(prompt, "sess_pipe")
	task.ClientRef = clientID
	board.Add(task)

	resp, err := client.Submit(ctx, api.SubmitRequest{
		SessionID: "sess_pipe",
		Prompt:    prompt,
		ChatMode:  api.ModeNormal,
	})
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	tracker.Link(clientID, resp.RequestID)
	if !board.Link(task.ID, resp.RequestID) {
		t.Fatal("board.Link() = false, want true")
	}

	rec := waitTerminal(t, client, "sess_pipe", resp.RequestID)
	board.ApplyRecord(rec)

	select {
	case n := <-board.Notifications():
		if n.RequestID != resp.RequestID {
			t.Errorf("notification request = %s, want %s", n.RequestID, resp.RequestID)
		}
		if n.Status != api.StatusCompleted {
			t.Errorf("notification status = %s, want %s", n.Status, api.StatusCompleted)
		}
	case <-time.After(time.Second):
		t.Fatal("board never notified completion")
	}

	// History wins: the tracker entry settles out.
	var prunedID string
	tracker.PruneAgainstHistory([]api.RequestRecord{rec}, func(id string, d time.Duration) {
		prunedID = id
	})
	if prunedID != clientID {
		t.Errorf("pruned id = %q, want %q", prunedID, clientID)
	}
	if tracker.Has(clientID) {
		t.Error("tracker still holds the settled request")
	}

	// And the projected transcript shows both sides of the exchange.
	records, err := client.History(ctx, "sess_pipe", 50)
	if err != nil {
		t.Fatalf("History() = %v", err)
	}
	entries := history.Merge(history.FromRecords(records))
	messages := history.Project(entries, nil, time.Now(), history.DefaultGraceWindow())
	if len(messages) != 2 {
		t.Fatalf("projected %d messages, want 2", len(messages))
	}
	if messages[0].Role != history.RoleUser || messages[0].Content != prompt {
		t.Errorf("first message = %s %q, want user prompt", messages[0].Role, messages[0].Content)
	}
	if messages[1].Role != history.RoleAssistant {
		t.Errorf("second message role = %s, want assistant", messages[1].Role)
	}
}

// =============================================================================
// CONCURRENCY
// =============================================================================

// TestConcurrentSubmissions hammers one client, tracker, and board
// from parallel goroutines. Run with -race.
func TestConcurrentSubmissions(t *testing.T) {
	_, client := startStub(t)

	tracker := track.New()
	board := queue.NewBoard(64)
	const workers = 8

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := context.Background()
			prompt := fmt.Sprintf("parallel request %d", n)

			clientID := tracker.Enqueue(prompt, track.Options{ChatMode: "normal"})
			task := queue.NewTask(prompt, "sess_conc")
			task.ClientRef = clientID
			board.Add(task)

			resp, err := client.Submit(ctx, api.SubmitRequest{
				SessionID: "sess_conc",
				Prompt:    prompt,
				ChatMode:  api.ModeNormal,
			})
			if err != nil {
				errCh <- fmt.Errorf("worker %d submit: %w", n, err)
				return
			}
			tracker.Link(clientID, resp.RequestID)
			board.Link(task.ID, resp.RequestID)

			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				records, err := client.History(ctx, "sess_conc", 100)
				if err != nil {
					time.Sleep(20 * time.Millisecond)
					continue
				}
				for _, rec := range records {
					if rec.RequestID != resp.RequestID || !rec.Status.IsTerminal() {
						continue
					}
					board.ApplyRecord(rec)
					tracker.PruneAgainstHistory([]api.RequestRecord{rec}, nil)
					return
				}
				time.Sleep(20 * time.Millisecond)
			}
			errCh <- fmt.Errorf("worker %d: request %s never finished", n, resp.RequestID)
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	if got := tracker.Len(); got != 0 {
		t.Errorf("tracker holds %d entries after settling, want 0", got)
	}
	if got := len(board.All()); got != workers {
		t.Errorf("board has %d tasks, want %d", got, workers)
	}

	records, err := client.History(context.Background(), "sess_conc", 100)
	if err != nil {
		t.Fatalf("History() = %v", err)
	}
	if len(records) != workers {
		t.Errorf("history has %d records, want %d", len(records), workers)
	}
	for _, rec := range records {
		if rec.Status != api.StatusCompleted {
			t.Errorf("record %s status = %s, want %s", rec.RequestID, rec.Status, api.StatusCompleted)
		}
	}
}

// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/logging"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/track"
)

// streamNudgeMsg asks for an immediate buffer drain without touching
// the render tick loop. Sent by reader goroutines when the batch
// threshold is crossed between ticks.
type streamNudgeMsg struct{}

// =============================================================================
// STREAMER
// =============================================================================

// Streamer runs direct-path streams on goroutines. Deltas go straight
// into the StreamBuffer; only lifecycle transitions are sent through
// the program. The program reference is set after tea.NewProgram, so
// sends are gated until then.
type Streamer struct {
	mu      sync.Mutex
	program *tea.Program

	client  *api.Client
	tracker *track.Tracker
	buffers *StreamBuffer
}

// NewStreamer creates a streamer. The program must be attached with
// SetProgram before the first Stream call delivers messages.
func NewStreamer(client *api.Client, tracker *track.Tracker, buffers *StreamBuffer) *Streamer {
	return &Streamer{
		client:  client,
		tracker: tracker,
		buffers: buffers,
	}
}

// SetProgram attaches the running program for message delivery.
func (s *Streamer) SetProgram(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

// Send delivers a message to the program if one is attached. Safe to
// call from any goroutine.
func (s *Streamer) Send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stream runs one direct-path submission on a goroutine. The cancel
// is bound to the tracker entry so dropping the request tears the
// stream down; output arriving after a drop is discarded.
func (s *Streamer) Stream(clientID string, sub api.SubmitRequest) {
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.tracker.BindCancel(clientID, cancel)

		var linked, first bool
		var failed bool

		err := s.client.SubmitStream(ctx, sub, func(chunk api.StreamChunk) {
			if !s.tracker.Has(clientID) {
				return
			}
			if chunk.RequestID != "" && !linked {
				linked = true
				s.Send(StreamLinkedMsg{ClientID: clientID, RequestID: chunk.RequestID})
			}
			if chunk.Error != nil || chunk.ErrorMsg != "" {
				failed = true
				chunkErr := chunk.Error
				if chunkErr == nil {
					chunkErr = errors.New(chunk.ErrorMsg)
				}
				s.Send(StreamFailedMsg{ClientID: clientID, Err: chunkErr})
				return
			}
			if chunk.Delta == "" {
				return
			}
			if !first {
				first = true
				s.Send(StreamFirstByteMsg{ClientID: clientID, At: time.Now()})
			}
			if s.buffers.Write(clientID, chunk.Delta) {
				s.Send(streamNudgeMsg{})
			}
		})

		if failed || !s.tracker.Has(clientID) {
			return
		}
		if err != nil {
			// Cancellation from a drop is not a failure; the drop
			// handler already cleaned up.
			if ctx.Err() != nil {
				return
			}
			logging.WithField("client_id", clientID).Debugf("stream failed: %v", err)
			s.Send(StreamFailedMsg{ClientID: clientID, Err: err})
			return
		}
		s.Send(StreamDoneMsg{ClientID: clientID})
	}()
}

// StreamToCompletion runs a direct-path submission synchronously and
// returns the announced request id and full response. Macro steps use
// this: they need the response before the next step can substitute it.
func (s *Streamer) StreamToCompletion(ctx context.Context, sub api.SubmitRequest) (string, string, error) {
	acc := api.NewStreamAccumulator()
	err := s.client.SubmitStream(ctx, sub, acc.Add)
	if err != nil {
		return acc.RequestID, acc.GetContent(), err
	}
	if accErr := acc.GetError(); accErr != nil {
		return acc.RequestID, acc.GetContent(), accErr
	}
	return acc.RequestID, acc.GetContent(), nil
}

// =============================================================================
// FEED PUMP
// =============================================================================

// FeedPump forwards orchestrator events into the program. Run exits
// when the feed channel closes, either on context cancellation or
// after the reconnect budget is spent; the model then falls back to
// polling.
type FeedPump struct {
	program *tea.Program
}

// NewFeedPump creates a pump bound to a running program.
func NewFeedPump(p *tea.Program) *FeedPump {
	return &FeedPump{program: p}
}

// Run consumes the feed until it closes. Call on a goroutine.
func (fp *FeedPump) Run(ctx context.Context, feed *events.Feed) {
	ch := feed.Stream(ctx)
	for ev := range ch {
		if ev.Err != nil {
			fp.program.Send(FeedStateMsg{Err: ev.Err})
			continue
		}
		fp.program.Send(FeedEventMsg{Event: ev})
	}
	if ctx.Err() == nil {
		fp.program.Send(FeedStateMsg{Down: true})
	}
}

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

// requestTimeout bounds the one-shot fetches issued from the Update
// loop. Streams manage their own lifetimes.
const requestTimeout = 10 * time.Second

// fetchHistoryCmd fetches session history for reconciliation.
func fetchHistoryCmd(client *api.Client, sessionID string, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		records, err := client.History(ctx, sessionID, limit)
		return HistoryMsg{SessionID: sessionID, Records: records, Err: err}
	}
}

// checkHealthCmd probes the orchestrator.
func checkHealthCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		health, err := client.Health(ctx)
		if err != nil {
			return HealthMsg{Err: err}
		}
		return HealthMsg{Version: health.Version}
	}
}

// fetchQueueCmd fetches the orchestrator queue status.
func fetchQueueCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		status, err := client.Queue(ctx)
		if err != nil {
			return QueueSnapshotMsg{Err: err}
		}
		return QueueSnapshotMsg{Status: *status}
	}
}

// fetchRuntimesCmd fetches the configured runtimes.
func fetchRuntimesCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		runtimes, err := client.ListRuntimes(ctx)
		return RuntimesMsg{Runtimes: runtimes, Err: err}
	}
}

// submitQueuedCmd posts a queued-path submission and reports the ack.
func submitQueuedCmd(client *api.Client, clientID, taskID string, sub api.SubmitRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := client.Submit(ctx, sub)
		if err != nil {
			return SubmitFailedMsg{ClientID: clientID, TaskID: taskID, Err: err}
		}
		return SubmitAckMsg{ClientID: clientID, TaskID: taskID, Resp: resp}
	}
}

// waitBoardCmd blocks on the next queue board notification. Re-issued
// after each delivery so the channel always has a listener.
func waitBoardCmd(board *queue.Board) tea.Cmd {
	return func() tea.Msg {
		note, ok := <-board.Notifications()
		if !ok {
			return nil
		}
		return TaskNotificationMsg{Note: note}
	}
}

// pollTickCmd schedules the next history poll. Used at the fallback
// cadence when the feed is down and at a slow keep-alive cadence when
// it is live.
func pollTickCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return PollTickMsg{Time: t}
	})
}

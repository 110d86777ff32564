// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// ============================================================================
// QUEUE WORKER
// ============================================================================

// runWorker drains the queue one request at a time, publishing feed
// events as each request moves through its lifecycle.
func (s *Server) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}

		for {
			rec := s.dequeue()
			if rec == nil {
				break
			}
			s.process(rec)
		}
	}
}

// nudgeWorker wakes the worker without blocking; a pending nudge
// already covers this one.
func (s *Server) nudgeWorker() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dequeue pops the queue head and marks it PROCESSING, or returns nil
// when the queue is empty or paused.
func (s *Server) dequeue() *api.RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused || len(s.queue) == 0 {
		return nil
	}

	rec := s.queue[0]
	s.queue = s.queue[1:]
	s.active = rec.RequestID
	rec.Status = api.StatusProcessing

	s.publishLocked(events.Event{
		Type:      events.EventStarted,
		RequestID: rec.RequestID,
		SessionID: rec.SessionID,
		Status:    api.StatusProcessing,
	})
	s.publishLocked(events.Event{
		Type:  events.EventQueueChanged,
		Queue: s.queueStatusLocked(),
	})

	return rec
}

// process runs the responder for a dequeued request, emits its deltas,
// and publishes the terminal event.
func (s *Server) process(rec *api.RequestRecord) {
	s.mu.RLock()
	respond := s.respond
	delay := s.stepDelay
	s.mu.RUnlock()

	text, err := respond(rec.Prompt, rec.ChatMode)

	if err == nil {
		for _, piece := range chunkText(text) {
			s.mu.Lock()
			s.publishLocked(events.Event{
				Type:      events.EventDelta,
				RequestID: rec.RequestID,
				SessionID: rec.SessionID,
				Delta:     piece,
			})
			s.mu.Unlock()

			if delay > 0 {
				select {
				case <-s.quit:
					// Shutting down; stop pacing and finish at once.
				case <-time.After(delay):
				}
			}
		}
	}

	now := time.Now().UTC()

	s.mu.Lock()
	s.active = ""
	rec.FinishedAt = &now

	final := events.Event{
		Type:      events.EventFinished,
		RequestID: rec.RequestID,
		SessionID: rec.SessionID,
	}
	if err != nil {
		rec.Status = api.StatusFailed
		rec.Error = err.Error()
		final.Status = api.StatusFailed
		final.ErrorMsg = rec.Error
	} else {
		rec.Status = api.StatusCompleted
		rec.Response = text
		final.Status = api.StatusCompleted
		final.Response = text
	}

	s.publishLocked(final)
	s.publishLocked(events.Event{
		Type:  events.EventQueueChanged,
		Queue: s.queueStatusLocked(),
	})
	s.mu.Unlock()

	if err != nil {
		s.stats.RecordFailure()
		logging.Warnf("stub request %s failed: %v", rec.RequestID, err)
	}
}

// chunkText splits a reply into small delta payloads so consumers see
// incremental output rather than one block.
func chunkText(text string) []string {
	const chunkRunes = 24

	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		n := chunkRunes
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

// ============================================================================
// EVENT FAN-OUT
// ============================================================================

// publishLocked assigns the next sequence number, appends the event to
// the replay window, and fans it out to live subscribers. Callers must
// hold s.mu.
func (s *Server) publishLocked(ev events.Event) {
	s.seqCounter++
	ev.Seq = s.seqCounter

	s.events = append(s.events, ev)
	if len(s.events) > maxEventBuffer {
		s.events = s.events[len(s.events)-maxEventBuffer:]
	}

	for ch, filter := range s.subs {
		if !eventVisible(ev, filter) {
			continue
		}
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it recovers from the replay window on
			// reconnect.
			logging.Debugf("stub feed dropped event seq=%d for slow subscriber", ev.Seq)
		}
	}
}

// eventVisible reports whether an event belongs on a feed with the
// given session filter. Events without a session id (queue, runtime)
// are broadcast to everyone.
func eventVisible(ev events.Event, sessionFilter string) bool {
	if sessionFilter == "" || ev.SessionID == "" {
		return true
	}
	return ev.SessionID == sessionFilter
}

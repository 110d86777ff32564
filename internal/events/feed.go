// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// =============================================================================
// FEED CONSTANTS
// =============================================================================

const (
	// feedPath is the orchestrator's event feed endpoint.
	feedPath = "/api/v1/events"

	// reconnectBaseDelay is the base delay for exponential backoff.
	reconnectBaseDelay = 500 * time.Millisecond

	// reconnectMaxDelay is the maximum delay for exponential backoff.
	reconnectMaxDelay = 10 * time.Second

	// DefaultMaxReconnects is how many consecutive dead connections the
	// feed tolerates before giving up. A connection that delivered at
	// least one event (heartbeats count) resets the budget.
	DefaultMaxReconnects = 5

	// MaxEventSize is the maximum allowed size for a single feed line (256KB).
	MaxEventSize = 256 * 1024
)

// =============================================================================
// FEED CLIENT
// =============================================================================

// Feed is a reconnecting client for the orchestrator event feed. One
// Feed watches one session. Create with NewFeed; a zero Feed is not
// usable.
type Feed struct {
	baseURL       string
	token         string
	sessionID     string
	maxReconnects int

	// PERFORMANCE: No client timeout; feed lifetime is bounded by context.
	httpClient *http.Client

	mu      sync.Mutex
	lastSeq int64
}

// NewFeed creates a feed client for one session, reusing the
// orchestrator client's connection settings.
func NewFeed(cfg *api.ClientConfig, sessionID string) *Feed {
	if cfg == nil {
		cfg = api.DefaultConfig()
	}
	return &Feed{
		baseURL:       cfg.BaseURL,
		token:         cfg.Token,
		sessionID:     sessionID,
		maxReconnects: DefaultMaxReconnects,
		httpClient:    &http.Client{},
	}
}

// LastSeq returns the sequence number of the newest event received.
// Reconnections resume after this point.
func (f *Feed) LastSeq() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeq
}

func (f *Feed) setLastSeq(seq int64) {
	if seq == 0 {
		return
	}
	f.mu.Lock()
	if seq > f.lastSeq {
		f.lastSeq = seq
	}
	f.mu.Unlock()
}

// Stream opens the feed and returns a channel of events. The channel
// closes when the context is cancelled or the reconnection budget is
// exhausted; a terminal failure is delivered as a final Event with Err
// set before the close.
func (f *Feed) Stream(ctx context.Context) <-chan Event {
	events := make(chan Event, 100)

	go func() {
		defer close(events)
		f.run(ctx, events)
	}()

	return events
}

// run drives the connect/consume/backoff loop.
func (f *Feed) run(ctx context.Context, out chan<- Event) {
	retries := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delivered, err := f.attempt(ctx, out)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if err != nil && !isFeedRetryable(err) {
			f.emit(ctx, out, Event{Err: err})
			return
		}

		if delivered > 0 {
			// The connection was healthy before it dropped.
			retries = 0
		} else {
			retries++
			if retries > f.maxReconnects {
				if err == nil {
					err = errors.New("feed closed repeatedly without events")
				}
				f.emit(ctx, out, Event{Err: fmt.Errorf("max reconnection attempts exceeded: %w", err)})
				return
			}
		}

		logging.Debugf("event feed reconnecting (attempt %d): %v", retries, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(calculateBackoff(retries)):
		}
	}
}

// attempt opens one connection and consumes it until it drops. Returns
// how many events were delivered and the error that ended the
// connection; a clean server-side close returns a nil error.
func (f *Feed) attempt(ctx context.Context, out chan<- Event) (int, error) {
	resp, err := f.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return f.consume(ctx, resp.Body, out)
}

// connect issues the feed request, resuming after the last seen
// sequence number.
func (f *Feed) connect(ctx context.Context) (*http.Response, error) {
	u := f.baseURL + feedPath + "?session_id=" + url.QueryEscape(f.sessionID)
	if seq := f.LastSeq(); seq > 0 {
		u += "&after=" + strconv.FormatInt(seq, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}

	req.Header.Set("Accept", "application/x-ndjson")
	req.Header.Set("Cache-Control", "no-cache")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, api.ErrUnauthorized
		case http.StatusNotFound:
			return nil, api.ErrNotFound
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return nil, api.ErrBusy
		}
		return nil, fmt.Errorf("feed connect failed: %s", resp.Status)
	}

	return resp, nil
}

// consume reads feed lines until the connection drops. Malformed and
// oversized lines are skipped, not fatal.
func (f *Feed) consume(ctx context.Context, body io.Reader, out chan<- Event) (int, error) {
	reader := bufio.NewReader(body)
	delivered := 0

	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Decode an unterminated final line before reporting the close.
				if ev, ok := decodeLine(line); ok {
					f.setLastSeq(ev.Seq)
					if f.emit(ctx, out, ev) {
						delivered++
					}
				}
				return delivered, nil
			}
			return delivered, err
		}

		ev, ok := decodeLine(line)
		if !ok {
			continue
		}

		f.setLastSeq(ev.Seq)
		if f.emit(ctx, out, ev) {
			delivered++
		}
	}
}

// emit delivers one event unless the context ends first.
func (f *Feed) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// decodeLine parses one NDJSON line. Blank, oversized and malformed
// lines report ok=false.
func decodeLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}
	if len(line) > MaxEventSize {
		logging.Debugf("event feed line too large: %d bytes", len(line))
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		logging.Debugf("event feed skipping malformed line: %v", err)
		return Event{}, false
	}
	if ev.Type == "" {
		return Event{}, false
	}
	return ev, true
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateBackoff returns the delay to wait before the next reconnect.
func calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: 500ms, 1000ms, 2000ms, etc.
	delay := reconnectBaseDelay * time.Duration(1<<uint(attempt))
	if delay > reconnectMaxDelay {
		delay = reconnectMaxDelay
	}
	return delay
}

// isFeedRetryable determines if a feed error should trigger a reconnect.
func isFeedRetryable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Credentials and routing will not fix themselves.
	if api.IsUnauthorized(err) || api.IsNotFound(err) {
		return false
	}
	return true
}

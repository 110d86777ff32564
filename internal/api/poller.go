// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the agent orchestrator.
package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// REFRESH GATE
// =============================================================================

// RefreshGate bounds how often history refreshes fire. Event-feed bursts
// (one status event per queued task transition) would otherwise trigger a
// fetch per event; the gate collapses them to a bounded rate and the
// periodic tick picks up whatever the gate suppressed.
type RefreshGate struct {
	limiter *rate.Limiter
}

// NewRefreshGate creates a gate allowing perSec refreshes with the given
// burst headroom.
func NewRefreshGate(perSec float64, burst int) *RefreshGate {
	if perSec <= 0 {
		perSec = 2
	}
	if burst <= 0 {
		burst = 3
	}
	return &RefreshGate{
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

// Allow reports whether a refresh may fire now.
func (g *RefreshGate) Allow() bool {
	return g.limiter.Allow()
}

// =============================================================================
// HISTORY POLLER
// =============================================================================

// Poller periodically fetches session history and hands the records to a
// callback. The TUI drives refreshes through Bubble Tea commands instead;
// the poller serves the plain REPL and headless uses.
type Poller struct {
	client    *Client
	sessionID string
	interval  time.Duration
	limiter   *rate.Limiter

	// OnRecords receives each successful fetch.
	OnRecords func(records []RequestRecord)
	// OnError receives fetch failures; polling continues.
	OnError func(err error)
}

// NewPoller creates a history poller for one session. interval <= 0
// defaults to 2s.
func NewPoller(client *Client, sessionID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		client:    client,
		sessionID: sessionID,
		interval:  interval,
		limiter:   rate.NewLimiter(rate.Every(interval/2), 1),
	}
}

// Run polls until the context is cancelled. Each cycle waits on the rate
// limiter first so manual Kick calls cannot stack fetches.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Immediate first fetch so callers see state before the first tick.
	p.fetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

// Kick triggers an immediate fetch, subject to the rate limiter.
func (p *Poller) Kick(ctx context.Context) {
	if p.limiter.Allow() {
		p.fetch(ctx)
	}
}

func (p *Poller) fetch(ctx context.Context) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	records, err := p.client.History(ctx, p.sessionID, 0)
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	if p.OnRecords != nil {
		p.OnRecords(records)
	}
}

// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the agent orchestrator.
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of NDJSON responses.
// Both the direct chat stream and the event feed use this framing.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
	requestID   string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
// Malformed and empty lines are skipped, not fatal: the orchestrator may
// interleave keep-alive newlines.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Process the last unterminated line on EOF.
		if len(line) == 0 {
			return nil, err
		}
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var chunk StreamChunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if chunk.RequestID != "" {
		s.requestID = chunk.RequestID
	}
	if chunk.Delta != "" {
		s.accumulator.WriteString(chunk.Delta)
		s.chunkCount++
	}

	return &chunk, nil
}

// GetAccumulated returns all accumulated response text.
func (s *StreamReader) GetAccumulated() string {
	return s.accumulator.String()
}

// GetChunkCount returns the number of non-empty deltas received.
func (s *StreamReader) GetChunkCount() int {
	return s.chunkCount
}

// GetRequestID returns the request id announced on the stream, if any.
func (s *StreamReader) GetRequestID() string {
	return s.requestID
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds timing collected on the client side of a stream.
type StreamStats struct {
	StartTime      time.Time
	FirstByteTime  time.Time
	EndTime        time.Time
	TTFT           time.Duration // time to first delta
	TotalDuration  time.Duration
	Chunks         int
	ResponseLength int
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstDelta marks the arrival of the first token.
func (s *StreamStats) RecordFirstDelta() {
	if s.FirstByteTime.IsZero() {
		s.FirstByteTime = time.Now()
		s.TTFT = s.FirstByteTime.Sub(s.StartTime)
	}
}

// Finalize computes final statistics at stream end.
func (s *StreamStats) Finalize(responseLength, chunks int) {
	s.EndTime = time.Now()
	s.TotalDuration = s.EndTime.Sub(s.StartTime)
	s.Chunks = chunks
	s.ResponseLength = responseLength
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streaming chunks and builds statistics.
// It is the single place that tracks done/failed for a direct stream.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content   strings.Builder
	RequestID string
	Stats     *StreamStats
	Done      bool
	Err       error
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		Stats: NewStreamStats(),
	}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Error != nil {
		a.Err = chunk.Error
		a.Done = true
		return
	}
	if chunk.ErrorMsg != "" {
		a.Err = &ClientError{Type: ErrTypeInvalidResponse, Message: chunk.ErrorMsg}
		a.Done = true
		return
	}

	if chunk.RequestID != "" {
		a.RequestID = chunk.RequestID
	}

	if chunk.Delta != "" {
		if a.content.Len() == 0 {
			a.Stats.RecordFirstDelta()
		}
		a.content.WriteString(chunk.Delta)
	}

	if chunk.Done {
		a.Done = true
		a.Stats.Finalize(a.content.Len(), a.Stats.Chunks)
	}
}

// GetContent returns the accumulated content.
func (a *StreamAccumulator) GetContent() string {
	return a.content.String()
}

// IsDone returns whether streaming is complete.
func (a *StreamAccumulator) IsDone() bool {
	return a.Done
}

// GetError returns any error that occurred.
func (a *StreamAccumulator) GetError() error {
	return a.Err
}

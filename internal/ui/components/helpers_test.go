// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the cockpit TUI.
package components

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// HELPER FUNCTION TESTS
// =============================================================================

func TestFmtNumber(t *testing.T) {
	tests := []struct {
		input int
		want  string
	}{
		{0, "0"},
		{1, "1"},
		{999, "999"},
		{1000, "1,000"},
		{1234, "1,234"},
		{12345, "12,345"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{1234567890, "1,234,567,890"},
		{-1, "-1"},
		{-999, "-999"},
		{-1000, "-1,000"},
		{-123456, "-123,456"},
	}

	for _, tc := range tests {
		got := fmtNumber(tc.input)
		if got != tc.want {
			t.Errorf("fmtNumber(%d) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFmtMs(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0ms"},
		{1, "1ms"},
		{824, "824ms"},
		{999, "999ms"},
		{1000, "1.0s"},
		{1049, "1.0s"},
		{1500, "1.5s"},
		{3249, "3.2s"},
		{12345, "12.3s"},
		{-50, "0ms"}, // Negative clamps to zero
	}

	for _, tc := range tests {
		got := fmtMs(tc.input)
		if got != tc.want {
			t.Errorf("fmtMs(%d) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "0s"},
		{5 * time.Second, "5s"},
		{42 * time.Second, "42s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m00s"},
		{3*time.Minute + 12*time.Second, "3m12s"},
		{59*time.Minute + 59*time.Second, "59m59s"},
		{time.Hour, "1h00m"},
		{time.Hour + 4*time.Minute, "1h04m"},
		{25*time.Hour + 30*time.Minute, "25h30m"},
		{-3 * time.Second, "0s"}, // Negative clamps to zero
	}

	for _, tc := range tests {
		got := fmtDuration(tc.input)
		if got != tc.want {
			t.Errorf("fmtDuration(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFmtClock(t *testing.T) {
	if got := fmtClock(time.Time{}); got != "" {
		t.Errorf("fmtClock(zero) = %q, want empty", got)
	}

	ts := time.Date(2026, 2, 11, 9, 5, 3, 0, time.Local)
	if got := fmtClock(ts); got != "09:05:03" {
		t.Errorf("fmtClock() = %q, want %q", got, "09:05:03")
	}
}

func TestPad2(t *testing.T) {
	tests := []struct {
		input int
		want  string
	}{
		{0, "00"},
		{4, "04"},
		{9, "09"},
		{10, "10"},
		{59, "59"},
	}

	for _, tc := range tests {
		got := pad2(tc.input)
		if got != tc.want {
			t.Errorf("pad2(%d) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"req_1", "req_1"},
		{"req_a1b2c3d4e5f6a7b8", "req_a1b2c3d4"},
		{"cli_000000001234", "cli_00000000"},
	}

	for _, tc := range tests {
		got := shortID(tc.input)
		if got != tc.want {
			t.Errorf("shortID(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

// =============================================================================
// WORD WRAP TESTS
// =============================================================================

func TestWordWrap(t *testing.T) {
	got := wordWrap("the quick brown fox jumps", 10)
	for _, line := range strings.Split(got, "\n") {
		if len([]rune(line)) > 10 {
			t.Errorf("wordWrap() produced line longer than 10: %q", line)
		}
	}
	if !strings.Contains(got, "\n") {
		t.Error("wordWrap() should have wrapped the text")
	}
}

func TestWordWrapPreservesNewlines(t *testing.T) {
	got := wordWrap("first\nsecond", 40)
	if got != "first\nsecond" {
		t.Errorf("wordWrap() = %q, want newline preserved", got)
	}
}

func TestWordWrapZeroWidth(t *testing.T) {
	input := "anything goes here"
	if got := wordWrap(input, 0); got != input {
		t.Errorf("wordWrap(width=0) = %q, want input unchanged", got)
	}
}

func TestWordWrapLongWord(t *testing.T) {
	// A single word longer than the width stays on its own line.
	got := wordWrap("supercalifragilistic", 8)
	if got != "supercalifragilistic" {
		t.Errorf("wordWrap() = %q, want long word untouched", got)
	}
}

func TestMaxLineWidth(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"abc", 3},
		{"ab\nabcd\nx", 4},
		{"one\ntwo\nthree", 5},
	}

	for _, tc := range tests {
		got := maxLineWidth(tc.input)
		if got != tc.want {
			t.Errorf("maxLineWidth(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestMinInt(t *testing.T) {
	if got := minInt(3, 7); got != 3 {
		t.Errorf("minInt(3, 7) = %d, want 3", got)
	}
	if got := minInt(7, 3); got != 3 {
		t.Errorf("minInt(7, 3) = %d, want 3", got)
	}
	if got := minInt(5, 5); got != 5 {
		t.Errorf("minInt(5, 5) = %d, want 5", got)
	}
}

// =============================================================================
// BENCHMARK TESTS
// =============================================================================

func BenchmarkFmtNumber(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = fmtNumber(123456789)
	}
}

func BenchmarkWordWrap(b *testing.B) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = wordWrap(text, 60)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestTUILogHandlerEnabled(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled on a warn handler")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error not enabled on a warn handler")
	}
}

func TestTUILogHandlerWithoutProgram(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	record := slog.NewRecord(time.Now(), slog.LevelWarn, "link failed", 0)
	if err := handler.Handle(context.Background(), record); err != nil {
		t.Errorf("Handle without a program = %v", err)
	}
}

func TestTUILogHandlerSummary(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	derived := handler.WithAttrs([]slog.Attr{slog.String("topic", "5c5c")}).WithGroup("link").(*TUILogHandler)

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "link failed", 0)
	record.AddAttrs(slog.String("peer", "a1b2c3"))

	want := "link failed (topic=5c5c, link.peer=a1b2c3)"
	if got := derived.summarize(record); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	if derived.program != handler.program {
		t.Error("derived handler does not share the program pointer")
	}

	bare := slog.NewRecord(time.Now(), slog.LevelError, "session ended", 0)
	if got := handler.summarize(bare); got != "session ended" {
		t.Errorf("summary = %q", got)
	}
}

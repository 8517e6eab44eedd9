package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestGcHandler_Handle(t *testing.T) {
	ts := time.Date(2025, 3, 10, 12, 0, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "20250310T120045Z",
			level:   slog.LevelInfo,
			message: "wallet connected",
			want:    "2025-03-10T12:00:45Z\tINFO\t20250310T120045Z\twallet connected\n",
		},
		{
			name:    "debug level",
			runID:   "run-2",
			level:   slog.LevelDebug,
			message: "aggregation started",
			want:    "2025-03-10T12:00:45Z\tDEBUG\trun-2\taggregation started\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-3",
			level:   slog.LevelWarn,
			message: "charity fetch failed",
			attrs:   []slog.Attr{slog.String("charity", "0x2222"), slog.Int("attempt", 2)},
			want:    "2025-03-10T12:00:45Z\tWARN\trun-3\tcharity fetch failed\tcharity=0x2222\tattempt=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &gcHandler{w: &buf, runID: tt.runID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestGcHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &gcHandler{w: &buf, runID: "run-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "aggregator")}).(*gcHandler)

	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "snapshot ready", 0)
	r.AddAttrs(slog.String("snapshot", "id-1"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2025-03-10T12:00:00Z\tINFO\trun-1\tsnapshot ready\tcomponent=aggregator\tsnapshot=id-1\n"
	if got := buf.String(); got != want {
		t.Errorf("Handle() output =\n%q\nwant:\n%q", got, want)
	}

	// The original handler is unchanged.
	buf.Reset()
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	want = "2025-03-10T12:00:00Z\tINFO\trun-1\tsnapshot ready\tsnapshot=id-1\n"
	if got := buf.String(); got != want {
		t.Errorf("Handle() without pre-set attrs =\n%q\nwant:\n%q", got, want)
	}
}

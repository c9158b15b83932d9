package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rdm-protocol/rdm-go/pkg/log"
)

func readAllEvents(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		events = append(events, e)
	}
	return events
}

func TestFilterBySessionID(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "sess-1", Category: log.CategoryMessage},
		{Timestamp: ts, SessionID: "sess-2", Category: log.CategoryMessage},
		{Timestamp: ts, SessionID: "sess-1", Category: log.CategoryDiscovery},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	if err := RunFilter(path, FilterOptions{Output: out, SessionID: "sess-1"}); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAllEvents(t, out)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.SessionID != "sess-1" {
			t.Errorf("unexpected session ID %q", e.SessionID)
		}
	}
}

func TestFilterByCategoryAndDirection(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Direction: log.DirectionOut, Category: log.CategoryMessage},
		{Timestamp: ts, Direction: log.DirectionIn, Category: log.CategoryMessage},
		{Timestamp: ts, Direction: log.DirectionIn, Category: log.CategoryError},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{Output: out, Category: "message", Direction: "in"}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAllEvents(t, out)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Direction != log.DirectionIn || got[0].Category != log.CategoryMessage {
		t.Errorf("wrong event: %+v", got[0])
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, Category: log.CategoryMessage},
		{Timestamp: base.Add(time.Hour), Category: log.CategoryMessage},
		{Timestamp: base.Add(2 * time.Hour), Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	opts := FilterOptions{
		Output:    out,
		TimeStart: base.Add(30 * time.Minute).Format(time.RFC3339),
		TimeEnd:   base.Add(90 * time.Minute).Format(time.RFC3339),
	}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readAllEvents(t, out)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestFilterRejectsBadTime(t *testing.T) {
	path := createTestLogFile(t, []log.Event{{Timestamp: time.Now()}})
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	err := RunFilter(path, FilterOptions{Output: out, TimeStart: "yesterday"})
	if err == nil {
		t.Fatal("expected error for bad time format")
	}
}

func TestFilterRejectsBadLayer(t *testing.T) {
	path := createTestLogFile(t, []log.Event{{Timestamp: time.Now()}})
	out := filepath.Join(t.TempDir(), "filtered.rlog")

	err := RunFilter(path, FilterOptions{Output: out, Layer: "session"})
	if err == nil {
		t.Fatal("expected error for bad layer")
	}
}

package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rdm-protocol/rdm-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 15, 32, 123456000, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			SessionID: "sess-1",
			Direction: log.DirectionOut,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			LocalUID:  "05e0:00000001",
			Message: &log.MessageEvent{
				CommandClass: 0x20,
				PID:          0x0060,
				DestUID:      "05e0:12345678",
				SrcUID:       "05e0:00000001",
				TN:           3,
			},
		},
	}

	path := createTestLogFile(t, events)

	out := filepath.Join(t.TempDir(), "out.jsonl")
	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, out)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			SessionID: "sess-1",
			Direction: log.DirectionOut,
			Layer:     log.LayerBus,
			Category:  log.CategoryMessage,
			Port:      "bus",
			LocalUID:  "05e0:00000001",
			Frame:     &log.FrameEvent{Size: 26},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			SessionID: "sess-1",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			Message: &log.MessageEvent{
				CommandClass: 0x21,
				PID:          0x0060,
				DestUID:      "05e0:00000001",
				SrcUID:       "05e0:12345678",
			},
		},
	}

	path := createTestLogFile(t, events)

	out := filepath.Join(t.TempDir(), "out.csv")
	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, out)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 3 { // header + 2 rows
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), data)
	}

	if !strings.HasPrefix(lines[0], "timestamp,session_id,direction") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "frame") {
		t.Errorf("expected frame row, got: %s", lines[1])
	}
	if !strings.Contains(lines[2], "0x0060") {
		t.Errorf("expected PID column, got: %s", lines[2])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, []log.Event{{Timestamp: time.Now()}})

	err := RunExport(path, "xml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExportMissingFile(t *testing.T) {
	err := RunExport(filepath.Join(t.TempDir(), "missing.rlog"), "jsonl", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rdm-protocol/rdm-go/pkg/log"
)

func TestViewFormatsFrameEvent(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			SessionID: "sess-aaaa-bbbb",
			Direction: log.DirectionOut,
			Layer:     log.LayerBus,
			Category:  log.CategoryMessage,
			Frame:     &log.FrameEvent{Size: 26, Data: []byte{0xcc, 0x01}},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "[session:sess-aaa") {
		t.Errorf("expected shortened session ID, got:\n%s", output)
	}
	if !strings.Contains(output, "OUT BUS Frame") {
		t.Errorf("expected frame header line, got:\n%s", output)
	}
	if !strings.Contains(output, "Size: 26 bytes") {
		t.Errorf("expected frame size, got:\n%s", output)
	}
	if !strings.Contains(output, "Data: cc01") {
		t.Errorf("expected hex data, got:\n%s", output)
	}
}

func TestViewFormatsMessageEvent(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rt := uint8(0x02) // NACK_REASON
	reason := uint16(0x0009)
	d := 3 * time.Millisecond
	events := []log.Event{
		{
			Timestamp: ts,
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			Message: &log.MessageEvent{
				CommandClass:   0x21, // GET_COMMAND_RESPONSE
				PID:            0x0060,
				DestUID:        "05e0:00000001",
				SrcUID:         "05e0:12345678",
				TN:             7,
				ResponseType:   &rt,
				NackReason:     &reason,
				ProcessingTime: &d,
			},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "GET_COMMAND_RESPONSE") {
		t.Errorf("expected command class label, got:\n%s", output)
	}
	if !strings.Contains(output, "PID: 0x0060") {
		t.Errorf("expected PID line, got:\n%s", output)
	}
	if !strings.Contains(output, "05e0:12345678 -> 05e0:00000001") {
		t.Errorf("expected UID line, got:\n%s", output)
	}
	if !strings.Contains(output, "NACK_REASON") {
		t.Errorf("expected response type, got:\n%s", output)
	}
	if !strings.Contains(output, "SUB_DEVICE_OUT_OF_RANGE") {
		t.Errorf("expected nack reason, got:\n%s", output)
	}
	if !strings.Contains(output, "Duration: 3.000ms") {
		t.Errorf("expected duration, got:\n%s", output)
	}
}

func TestViewFormatsDiscoveryEvent(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			Layer:     log.LayerEngine,
			Category:  log.CategoryDiscovery,
			Discovery: &log.DiscoveryEvent{
				Phase:     log.PhaseProbe,
				LowerUID:  "0000:00000000",
				UpperUID:  "7fff:ffffffff",
				Collision: true,
			},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			Layer:     log.LayerEngine,
			Category:  log.CategoryDiscovery,
			Discovery: &log.DiscoveryEvent{
				Phase:    log.PhaseFound,
				FoundUID: "05e0:12345678",
			},
		},
	}

	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "PROBE") {
		t.Errorf("expected probe phase, got:\n%s", output)
	}
	if !strings.Contains(output, "Branch: 0000:00000000 .. 7fff:ffffffff") {
		t.Errorf("expected branch bounds, got:\n%s", output)
	}
	if !strings.Contains(output, "Collision: true") {
		t.Errorf("expected collision marker, got:\n%s", output)
	}
	if !strings.Contains(output, "FOUND") {
		t.Errorf("expected found phase, got:\n%s", output)
	}
	if !strings.Contains(output, "UID: 05e0:12345678") {
		t.Errorf("expected found UID, got:\n%s", output)
	}
}

func TestViewFiltersByLayer(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerBus, Category: log.CategoryMessage, Frame: &log.FrameEvent{Size: 26}},
		{Timestamp: ts, Layer: log.LayerEngine, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "boom"}},
	}

	path := createTestLogFile(t, events)

	layer := log.LayerEngine
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Frame") {
		t.Errorf("bus event should be filtered out, got:\n%s", output)
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("expected error event, got:\n%s", output)
	}
}

func TestViewFiltersByDirection(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Direction: log.DirectionOut, Category: log.CategoryMessage, Frame: &log.FrameEvent{Size: 26}},
		{Timestamp: ts, Direction: log.DirectionIn, Category: log.CategoryMessage, Frame: &log.FrameEvent{Size: 30}},
	}

	path := createTestLogFile(t, events)

	dir := log.DirectionIn
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Direction: &dir}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Size: 26") {
		t.Errorf("outgoing event should be filtered out, got:\n%s", output)
	}
	if !strings.Contains(output, "Size: 30") {
		t.Errorf("expected incoming event, got:\n%s", output)
	}
}

func TestParseLayerFlag(t *testing.T) {
	cases := []struct {
		in   string
		want log.Layer
		ok   bool
	}{
		{"bus", log.LayerBus, true},
		{"WIRE", log.LayerWire, true},
		{"Engine", log.LayerEngine, true},
		{"transport", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseLayerFlag(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseLayerFlag(%q): unexpected error %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseLayerFlag(%q): expected error", tc.in)
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseLayerFlag(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseCategoryFlag(t *testing.T) {
	if _, err := ParseCategoryFlag("discovery"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}
}

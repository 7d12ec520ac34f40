package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mash-protocol/reactor-go/pkg/log"
)

func TestFormatFrameEvent(t *testing.T) {
	event := sessionEvents()[2]

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	want := "2026-01-28T10:15:32.143456Z [conn:abc12345] IN  TRANSPORT Frame 203.0.113.5:4400\n"
	if !strings.HasPrefix(output, want) {
		t.Errorf("unexpected header:\n got: %q\nwant: %q", output, want)
	}
	if !strings.Contains(output, "Size: 4 bytes") {
		t.Errorf("expected frame size, got: %s", output)
	}
	if !strings.Contains(output, "Data: 70696e67") {
		t.Errorf("expected hex payload, got: %s", output)
	}
	if strings.Contains(output, "(truncated)") {
		t.Errorf("unexpected truncation marker, got: %s", output)
	}
}

func TestFormatTruncatedFrame(t *testing.T) {
	data := bytes.Repeat([]byte{0xab}, log.MaxFrameDataSize+10)
	event := log.Event{
		Timestamp: baseTime,
		Layer:     log.LayerTransport,
		Category:  log.CategoryData,
		Frame:     log.NewFrameEvent(data),
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "(truncated)") {
		t.Errorf("expected truncation marker, got: %s", output)
	}
	if !strings.Contains(output, "Size: 266 bytes") {
		t.Errorf("expected original size, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[5])
	output := buf.String()

	for _, want := range []string{
		"REACTOR State",
		"Entity: CONNECTION",
		"CONNECTED -> DISCONNECTED",
		"Reason: RESET",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatStateChangeWithoutOldState(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[1])

	if !strings.Contains(buf.String(), "  -> CONNECTED\n") {
		t.Errorf("expected bare transition, got: %s", buf.String())
	}
}

func TestFormatReactorEventHasNoConnection(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[0])
	output := buf.String()

	if !strings.Contains(output, "[conn:-]") {
		t.Errorf("expected placeholder connection ID, got: %s", output)
	}
	if !strings.Contains(output, "CREATED -> STARTED") {
		t.Errorf("expected reactor transition, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[4])
	output := buf.String()

	for _, want := range []string{
		"TRANSPORT Error",
		"Message: read: connection reset by peer",
		"Kind: RESET",
		"Context: connection",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestShortenConnID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{connA, "abc12345"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortenConnID(tt.in); got != tt.want {
			t.Errorf("shortenConnID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Reactor"); err != nil || l != log.LayerReactor {
		t.Errorf("ParseLayerFlag(Reactor) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("data"); err != nil || c != log.CategoryData {
		t.Errorf("ParseCategoryFlag(data) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("message"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunViewAll(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	// One header line per event.
	if got := strings.Count(buf.String(), "[conn:"); got != 7 {
		t.Errorf("expected 7 events, got %d:\n%s", got, buf.String())
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	dir := log.DirectionOut
	cat := log.CategoryData
	var buf bytes.Buffer
	err := RunView(path, ViewFilter{Direction: &dir, Category: &cat, Peer: peerA}, &buf)
	if err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if got := strings.Count(output, "[conn:"); got != 1 {
		t.Errorf("expected 1 event, got %d:\n%s", got, output)
	}
	if !strings.Contains(output, "OUT TRANSPORT Frame") {
		t.Errorf("expected outbound frame, got: %s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := RunView("/nonexistent/test.rlog", ViewFilter{}, &buf)
	if err == nil || !strings.Contains(err.Error(), "failed to open log file") {
		t.Errorf("expected open error, got %v", err)
	}
}

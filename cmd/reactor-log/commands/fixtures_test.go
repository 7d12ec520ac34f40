package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mash-protocol/reactor-go/pkg/log"
)

const (
	connA = "abc12345-6789-0123-4567-890abcdef012"
	connB = "def67890-1234-5678-9abc-def012345678"
	peerA = "203.0.113.5:4400"
	peerB = "203.0.113.6:4400"
)

var baseTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sessionEvents is a short echo session: one peer connects, sends four bytes
// that are echoed back, and disconnects with a reset.
func sessionEvents() []log.Event {
	at := func(ms int) time.Time { return baseTime.Add(time.Duration(ms) * time.Millisecond) }
	return []log.Event{
		{
			Timestamp: at(0),
			Direction: log.DirectionOut,
			Layer:     log.LayerReactor,
			Category:  log.CategoryState,
			LocalAddr: "127.0.0.1:7400",
			StateChange: &log.StateChangeEvent{
				Entity: log.StateEntityReactor, OldState: "CREATED", NewState: "STARTED",
			},
		},
		{
			Timestamp: at(10), ConnectionID: connA,
			Direction: log.DirectionIn, Layer: log.LayerReactor, Category: log.CategoryState,
			RemoteAddr:  peerA,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityConnection, NewState: "CONNECTED"},
		},
		{
			Timestamp: at(20), ConnectionID: connA,
			Direction: log.DirectionIn, Layer: log.LayerTransport, Category: log.CategoryData,
			RemoteAddr: peerA,
			Frame:      &log.FrameEvent{Size: 4, Data: []byte("ping")},
		},
		{
			Timestamp: at(21), ConnectionID: connA,
			Direction: log.DirectionOut, Layer: log.LayerTransport, Category: log.CategoryData,
			RemoteAddr: peerA,
			Frame:      &log.FrameEvent{Size: 4, Data: []byte("ping")},
		},
		{
			Timestamp: at(30), ConnectionID: connA,
			Direction: log.DirectionIn, Layer: log.LayerTransport, Category: log.CategoryError,
			RemoteAddr: peerA,
			Error: &log.ErrorEventData{
				Layer: log.LayerTransport, Message: "read: connection reset by peer",
				Kind: "RESET", Context: "connection",
			},
		},
		{
			Timestamp: at(31), ConnectionID: connA,
			Direction: log.DirectionIn, Layer: log.LayerReactor, Category: log.CategoryState,
			RemoteAddr: peerA,
			StateChange: &log.StateChangeEvent{
				Entity: log.StateEntityConnection, OldState: "CONNECTED", NewState: "DISCONNECTED", Reason: "RESET",
			},
		},
		{
			Timestamp: at(40), ConnectionID: connB,
			Direction: log.DirectionIn, Layer: log.LayerReactor, Category: log.CategoryState,
			RemoteAddr:  peerB,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityConnection, NewState: "CONNECTED"},
		},
	}
}

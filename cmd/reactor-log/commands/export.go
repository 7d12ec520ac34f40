package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mash-protocol/reactor-go/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var export func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		export = exportJSONL
	case "csv":
		export = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return export(reader, w)
}

// jsonEvent is the JSONL shape of an event, with enums spelled out.
type jsonEvent struct {
	Timestamp    string           `json:"timestamp"`
	ConnectionID string           `json:"connectionId,omitempty"`
	Direction    string           `json:"direction"`
	Layer        string           `json:"layer"`
	Category     string           `json:"category"`
	RemoteAddr   string           `json:"remoteAddr,omitempty"`
	LocalAddr    string           `json:"localAddr,omitempty"`
	Frame        *jsonFrame       `json:"frame,omitempty"`
	StateChange  *jsonStateChange `json:"stateChange,omitempty"`
	Error        *jsonError       `json:"error,omitempty"`
}

type jsonFrame struct {
	Size      int    `json:"size"`
	Data      string `json:"data,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

type jsonStateChange struct {
	Entity   string `json:"entity"`
	OldState string `json:"oldState,omitempty"`
	NewState string `json:"newState"`
	Reason   string `json:"reason,omitempty"`
}

type jsonError struct {
	Layer   string `json:"layer"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Context string `json:"context,omitempty"`
}

func toJSONEvent(event log.Event) jsonEvent {
	je := jsonEvent{
		Timestamp:    event.Timestamp.UTC().Format(timestampLayout),
		ConnectionID: event.ConnectionID,
		Direction:    event.Direction.String(),
		Layer:        event.Layer.String(),
		Category:     event.Category.String(),
		RemoteAddr:   event.RemoteAddr,
		LocalAddr:    event.LocalAddr,
	}
	if f := event.Frame; f != nil {
		je.Frame = &jsonFrame{Size: f.Size, Data: hex.EncodeToString(f.Data), Truncated: f.Truncated}
	}
	if sc := event.StateChange; sc != nil {
		je.StateChange = &jsonStateChange{
			Entity:   sc.Entity.String(),
			OldState: sc.OldState,
			NewState: sc.NewState,
			Reason:   sc.Reason,
		}
	}
	if e := event.Error; e != nil {
		je.Error = &jsonError{Layer: e.Layer.String(), Message: e.Message, Kind: e.Kind, Context: e.Context}
	}
	return je
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toJSONEvent(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "layer", "category", "remote_addr", "type", "size", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var size, detail string
		switch {
		case event.Frame != nil:
			size = strconv.Itoa(event.Frame.Size)
		case event.StateChange != nil:
			detail = event.StateChange.Entity.String() + " " + event.StateChange.NewState
		case event.Error != nil:
			detail = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampLayout),
			event.ConnectionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.RemoteAddr,
			eventType(event),
			size,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Command reactor-log is a tool for viewing and analyzing reactor protocol
// log files.
//
// Log files are created by running reactor-echo with the -protocol-log flag,
// or by any host that installs a log.FileLogger as the reactor's
// ProtocolLogger.
//
// Usage:
//
//	reactor-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	reactor-log view echo.rlog
//
//	# View only connection lifecycle events
//	reactor-log view -category state echo.rlog
//
//	# View only bytes sent to one peer
//	reactor-log view -direction out -peer 203.0.113.5:4400 echo.rlog
//
//	# Export to JSONL
//	reactor-log export -format jsonl echo.rlog
//
//	# Filter by connection and save to new file
//	reactor-log filter -conn-id abc12345 -o filtered.rlog echo.rlog
//
//	# Show statistics
//	reactor-log stats echo.rlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mash-protocol/reactor-go/cmd/reactor-log/commands"
)

const usage = `reactor-log - Reactor Protocol Log Analyzer

Usage:
  reactor-log <command> [flags] <file.rlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "reactor-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// newFlagSet creates a flag set whose usage text starts with title and
// synopsis.
func newFlagSet(name, title, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "reactor-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, title, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// logPath returns the single positional argument or exits.
func logPath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "reactor-log view [flags] <file.rlog>")

	layer := fs.String("layer", "", "Filter by layer (transport, reactor)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (data, state, error)")
	peer := fs.String("peer", "", "Filter by peer address (ip:port)")

	_ = fs.Parse(args)
	path := logPath(fs)

	filter := commands.ViewFilter{Peer: *peer}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fatal(err)
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fatal(err)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fatal(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format", "reactor-log export [flags] <file.rlog>")

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	_ = fs.Parse(args)
	path := logPath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "reactor-log filter [flags] <file.rlog>")

	output := fs.String("o", "", "Output file (required)")
	connID := fs.String("conn-id", "", "Filter by connection ID prefix")
	peer := fs.String("peer", "", "Filter by peer address (ip:port)")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, reactor)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (data, state, error)")

	_ = fs.Parse(args)
	path := logPath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		ConnID:    *connID,
		Peer:      *peer,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	}

	if err := commands.RunFilter(path, opts, os.Stdout); err != nil {
		fatal(err)
	}
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "reactor-log stats <file.rlog>")

	_ = fs.Parse(args)
	path := logPath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}

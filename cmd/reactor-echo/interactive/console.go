// Package interactive provides the operator console for reactor-echo.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/reactor-go/pkg/discovery"
	"github.com/mash-protocol/reactor-go/pkg/peer"
	"github.com/mash-protocol/reactor-go/pkg/reactor"
)

// Reactor is the part of *reactor.Reactor the console drives.
type Reactor interface {
	reactor.Sender
	Addr() net.Addr
	State() reactor.State
	ConnectionCount() int
	Peers() []peer.Identity
	CloseConnection(to peer.Identity) error
}

// Browser finds reactors advertised on the network.
type Browser interface {
	Lookup(ctx context.Context, timeout time.Duration) ([]*discovery.Service, error)
}

// Console is a readline-based command loop.
type Console struct {
	rl      *readline.Instance
	out     io.Writer
	browser Browser
}

// New creates a console on the terminal.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "reactor> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// SetBrowser enables the browse command.
func (c *Console) SetBrowser(b Browser) {
	c.browser = b
}

// Run reads commands until the user quits, input ends, or ctx is done.
func (c *Console) Run(ctx context.Context, r Reactor) {
	defer c.rl.Close()

	go func() {
		<-ctx.Done()
		c.rl.Close()
	}()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			return
		}

		if quit := c.Execute(r, line); quit {
			return
		}
	}
}

// Execute runs one command line. It reports whether the console should exit.
func (c *Console) Execute(r Reactor, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "peers", "p":
		c.cmdPeers(r)

	case "send", "s":
		c.cmdSend(r, args, line)

	case "close", "kick":
		c.cmdClose(r, args)

	case "stats", "st":
		c.cmdStats(r)

	case "browse", "b":
		c.cmdBrowse(args)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  peers                 List connected peers
  send <peer> <text>    Send text to a peer (ip:port)
  close <peer>          Close a peer's connection
  stats                 Show reactor state
  browse [seconds]      List reactors advertised over mDNS
  help                  Show this help
  quit                  Exit`)
}

func (c *Console) cmdPeers(r Reactor) {
	peers := r.Peers()
	if len(peers) == 0 {
		fmt.Fprintln(c.out, "No peers connected")
		return
	}

	names := make([]string, len(peers))
	for i, p := range peers {
		names[i] = p.String()
	}
	sort.Strings(names)

	fmt.Fprintf(c.out, "%d peer(s):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s\n", name)
	}
}

func (c *Console) cmdSend(r Reactor, args []string, line string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: send <peer> <text>")
		return
	}
	p, err := peer.Parse(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid peer: %v\n", err)
		return
	}

	// Keep the text's inner spacing.
	text := strings.TrimSpace(line)
	text = strings.TrimSpace(text[strings.Index(text, args[0])+len(args[0]):])

	if err := r.Send([]byte(text+"\n"), p); err != nil {
		fmt.Fprintf(c.out, "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Sent %d bytes to %s\n", len(text)+1, p)
}

func (c *Console) cmdClose(r Reactor, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: close <peer>")
		return
	}
	p, err := peer.Parse(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid peer: %v\n", err)
		return
	}
	if err := r.CloseConnection(p); err != nil {
		fmt.Fprintf(c.out, "Close failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Closed %s\n", p)
}

func (c *Console) cmdStats(r Reactor) {
	addr := "-"
	if a := r.Addr(); a != nil {
		addr = a.String()
	}
	fmt.Fprintf(c.out, "State:       %s\n", r.State())
	fmt.Fprintf(c.out, "Listening:   %s\n", addr)
	fmt.Fprintf(c.out, "Connections: %d\n", r.ConnectionCount())
}

func (c *Console) cmdBrowse(args []string) {
	if c.browser == nil {
		fmt.Fprintln(c.out, "Browsing not available")
		return
	}

	timeout := 3 * time.Second
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintln(c.out, "Usage: browse [seconds]")
			return
		}
		timeout = time.Duration(secs) * time.Second
	}

	fmt.Fprintf(c.out, "Browsing for %s...\n", timeout)
	services, err := c.browser.Lookup(context.Background(), timeout)
	if err != nil {
		fmt.Fprintf(c.out, "Browse failed: %v\n", err)
		return
	}
	if len(services) == 0 {
		fmt.Fprintln(c.out, "No reactors found")
		return
	}

	fmt.Fprintf(c.out, "%d reactor(s):\n", len(services))
	for _, svc := range services {
		fmt.Fprintf(c.out, "  %s  %s:%d  conns=%d  [%s]\n",
			svc.Instance, svc.Host, svc.Port, svc.Connections, strings.Join(svc.Addresses, ", "))
	}
}

var (
	_ Reactor = (*reactor.Reactor)(nil)
	_ Browser = (*discovery.MDNSBrowser)(nil)
)

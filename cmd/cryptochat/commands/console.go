package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"cryptochat/internal/domain"
	"cryptochat/internal/services/coordinator"
)

// Controller is the part of the coordinator the console drives.
type Controller interface {
	ConnectTo(address string) error
	CancelOutgoingConnection() error
	StopActiveSession() error
	SendMessage(text string) error
	State() coordinator.State
}

// Console is the terminal front end. It prints engine events, answers
// invitations from the keyboard and turns input lines into actions.
type Console struct {
	// Resolve maps a peer name to an address. Nil passes input through.
	Resolve func(target string) (string, error)
	// Peers backs /peers. Nil disables it.
	Peers domain.PeerStore

	in          io.Reader
	interactive bool
	autoAccept  bool

	mu      sync.Mutex
	out     io.Writer
	pending chan bool
}

var (
	_ domain.EventSink            = (*Console)(nil)
	_ domain.ConfirmationProvider = (*Console)(nil)
)

func NewConsole(in io.Reader, out io.Writer, interactive, autoAccept bool) *Console {
	return &Console{in: in, out: out, interactive: interactive, autoAccept: autoAccept}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Run executes startup lines, then reads input until /quit, end of input
// on a terminal, or ctx is done.
func (c *Console) Run(ctx context.Context, ctl Controller, startup ...string) error {
	for _, line := range startup {
		if c.exec(ctl, line) {
			return nil
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if c.interactive {
					return nil
				}
				// Piped input ran out; keep serving until interrupted.
				lines = nil
				continue
			}
			if c.exec(ctl, line) {
				return nil
			}
		}
	}
}

// exec handles one input line and reports whether the console should quit.
func (c *Console) exec(ctl Controller, line string) bool {
	if c.answer(line) {
		return false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if err := ctl.SendMessage(line); err != nil {
			c.printf("! %s", describe(err))
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	var err error
	switch cmd {
	case "/connect":
		if arg == "" {
			c.printf("usage: /connect <peer>")
			return false
		}
		addr := arg
		if c.Resolve != nil {
			if addr, err = c.Resolve(arg); err != nil {
				break
			}
		}
		if err = ctl.ConnectTo(addr); err == nil {
			c.printf("* connecting to %s (/cancel to abandon)", addr)
		}
	case "/cancel":
		err = ctl.CancelOutgoingConnection()
	case "/stop":
		err = ctl.StopActiveSession()
	case "/state":
		c.printf("* %s", ctl.State())
	case "/peers":
		c.listPeers()
	case "/quit", "/exit":
		return true
	case "/help":
		c.printf("commands: /connect <peer>, /cancel, /stop, /state, /peers, /quit; other lines are sent as messages")
	default:
		c.printf("! unknown command %s (try /help)", cmd)
	}
	if err != nil {
		c.printf("! %s", describe(err))
	}
	return false
}

func (c *Console) listPeers() {
	if c.Peers == nil {
		c.printf("! no address book")
		return
	}
	peers, err := c.Peers.ListPeers()
	if err != nil {
		c.printf("! %v", err)
		return
	}
	if len(peers) == 0 {
		c.printf("* no saved peers")
		return
	}
	for _, p := range peers {
		c.printf("  %-16s %s", p.Name, p.Address)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrBusy):
		return "already connecting or in a session (/cancel or /stop first)"
	case errors.Is(err, coordinator.ErrNoSession):
		return "no active session (/connect <peer> to start one)"
	case errors.Is(err, coordinator.ErrNoAttempt):
		return "no outgoing connection to cancel"
	}
	return err.Error()
}

// answer consumes line as the reply to a pending invitation prompt.
func (c *Console) answer(line string) bool {
	c.mu.Lock()
	ch := c.pending
	c.pending = nil
	c.mu.Unlock()
	if ch == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		ch <- true
	default:
		ch <- false
	}
	return true
}

// RequestConfirmation asks the user about an invitation from peerAddress.
func (c *Console) RequestConfirmation(ctx context.Context, peerAddress string) (bool, error) {
	if c.autoAccept {
		c.printf("* accepting invitation from %s", peerAddress)
		return true, nil
	}
	if !c.interactive {
		c.printf("* declining invitation from %s (stdin is not a terminal; use --auto-accept)", peerAddress)
		return false, nil
	}

	ch := make(chan bool, 1)
	c.mu.Lock()
	c.pending = ch
	fmt.Fprintf(c.out, "? %s wants to chat. Accept? [y/n]\n", peerAddress)
	c.mu.Unlock()

	select {
	case ok := <-ch:
		return ok, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.pending == ch {
			c.pending = nil
		}
		c.mu.Unlock()
		return false, ctx.Err()
	}
}

// Events.

func (c *Console) ServerStarted(address string) {
	c.printf("* listening on %s", address)
}

func (c *Console) ServerFailed(err error) {
	c.printf("! listener: %v", err)
}

func (c *Console) SessionStarted(info domain.SessionInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "* session started with %s\n", info.PeerAddress)
	fmt.Fprintf(c.out, "  your key:  %s\n", info.OwnFingerprint)
	fmt.Fprintf(c.out, "  their key: %s\n", info.PeerFingerprint)
	fmt.Fprintln(c.out, "  compare both fingerprints with your peer over another channel")
}

func (c *Console) SessionEnded(reason domain.EndReason) {
	c.printf("* session ended: %s", reason)
}

func (c *Console) MessageReceived(text string) {
	c.printf("< %s", printable(text))
}

func (c *Console) MessageSent(text string) {
	c.printf("> %s", printable(text))
}

func (c *Console) MessageFailed(text string, err error) {
	c.printf("! not delivered: %s (%v)", printable(text), err)
}

func (c *Console) OutgoingConnectionFailed(reason domain.EndReason) {
	c.printf("* connection failed: %s", reason)
}

func (c *Console) IncomingDeclined(peerAddress string, reason domain.EndReason) {
	c.printf("* turned away %s: %s", peerAddress, reason)
}

// printable escapes control characters so a peer cannot drive the
// terminal.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return unicode.ReplacementChar
	}, s)
}

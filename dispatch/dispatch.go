// Package dispatch serializes all ledger mutations through a single loop
// fed by the presence watcher and the UI command source.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	"github.com/gen2brain/beeep"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/ledger"
	"github.com/dahallgren/bundyclock/watcher"
)

// Command is a discrete instruction from the UI command source.
type Command int

const (
	CmdBreakStart Command = iota
	CmdShowToday
	CmdQuit
)

func (c Command) String() string {
	switch c {
	case CmdBreakStart:
		return "break-start"
	case CmdShowToday:
		return "show-today"
	case CmdQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// State tracks the dispatcher through its lifetime.
type State int

const (
	// Idle: sources not yet attached.
	Idle State = iota
	// Watching: the steady state, both sources active.
	Watching
	// Draining: shutdown requested, flushing the final punch-out.
	Draining
)

// message is one queue element. Exactly one of the two fields is set.
type message struct {
	presence *watcher.Event
	command  *Command
}

// Dispatcher drains a single queue and performs every ledger call itself,
// which is what makes the file-based backends safe without locks. Producers
// never touch the ledger: they enqueue and move on.
type Dispatcher struct {
	ledger ledger.Ledger
	queue  chan message
	state  State
	notify func(rec *models.PunchRecord)
}

// New returns a dispatcher writing to l.
func New(l ledger.Ledger) *Dispatcher {
	return &Dispatcher{
		ledger: l,
		queue:  make(chan message, 16),
		state:  Idle,
		notify: notifyDesktop,
	}
}

// State reports the dispatcher's lifecycle state.
func (d *Dispatcher) State() State {
	return d.state
}

// Enqueue hands a presence event to the dispatcher. Safe to call from any
// goroutine; messages are processed strictly in enqueue order.
func (d *Dispatcher) Enqueue(ev watcher.Event) {
	d.queue <- message{presence: &ev}
}

// Send hands a UI command to the dispatcher.
func (d *Dispatcher) Send(cmd Command) {
	d.queue <- message{command: &cmd}
}

// Forward pumps a presence event channel into the queue until the channel
// closes or ctx is cancelled. Watcher adapters produce channels; this is
// the bridge that keeps them off the ledger.
func (d *Dispatcher) Forward(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}

			d.Enqueue(ev)
		case <-ctx.Done():
			return
		}
	}
}

// Run consumes the queue until ctx is cancelled or a quit command arrives,
// then drains: the in-flight message is finished, a final punch-out is
// recorded, and Run returns. Headless operation (no UI attached) just means
// no commands are ever enqueued.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.state = Watching

	// opening punch: starting the daemon means the user is present
	if err := d.ledger.RecordIn(); err != nil {
		slog.Error("opening punch-in failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return d.drain()
		case msg := <-d.queue:
			if msg.command != nil && *msg.command == CmdQuit {
				return d.drain()
			}

			d.handle(msg)
		}
	}
}

// drain flushes whatever is still queued, records the final punch-out, and
// leaves the ledger closed for business.
func (d *Dispatcher) drain() error {
	d.state = Draining

	for {
		select {
		case msg := <-d.queue:
			if msg.command != nil && *msg.command == CmdQuit {
				continue
			}

			d.handle(msg)
		default:
			if err := d.ledger.RecordOut(); err != nil {
				slog.Error("final punch-out failed", "error", err)
			}

			slog.Info("dispatcher drained, shutting down")

			return nil
		}
	}
}

// handle performs the ledger call for one message. Hot-path failures are
// logged and swallowed: a missed punch is recoverable later, a crashed
// daemon is not.
func (d *Dispatcher) handle(msg message) {
	slog.Debug(spew.Sdump(msg))

	switch {
	case msg.presence != nil:
		if msg.presence.Locked {
			if err := d.ledger.RecordOut(); err != nil {
				slog.Error("punch-out failed", "error", err)
			}
		} else {
			if err := d.ledger.RecordIn(); err != nil {
				slog.Error("punch-in failed", "error", err)
			}
		}
	case msg.command != nil:
		d.handleCommand(*msg.command)
	}
}

func (d *Dispatcher) handleCommand(cmd Command) {
	switch cmd {
	case CmdBreakStart:
		if err := d.ledger.StartBreak(); err != nil {
			slog.Error("break-start failed", "error", err)
		}
	case CmdShowToday:
		rec, err := d.ledger.Today()
		if err != nil {
			slog.Error("today query failed", "error", err)
			return
		}

		d.notify(rec)
	case CmdQuit:
		// handled by Run/drain
	}
}

func notifyDesktop(rec *models.PunchRecord) {
	if err := beeep.Notify("bundyclock", rec.String(), ""); err != nil {
		slog.Warn("desktop notification failed", "error", err)
	}
}

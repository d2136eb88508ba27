// Package watcher turns desktop lock/unlock notifications into a stream of
// presence events. Adapters translate their platform's native callback or
// poll style into events on a channel; they never touch the ledger.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// ErrWatcherUnavailable is returned once the connection retry budget is
// exhausted. It is fatal at daemon startup.
var ErrWatcherUnavailable = errors.New("presence watcher unavailable")

const (
	// connectAttempts bounds the startup retry budget. When the daemon is
	// started as a user service the session bus may not be up yet.
	connectAttempts = 20
	connectDelay    = 1 * time.Second
)

// Event is one presence change emitted by a source.
type Event struct {
	Locked bool
	At     time.Time
}

// Source is the presence source contract: an unbounded stream of events
// with no guarantee beyond emission order.
type Source interface {
	Watch(ctx context.Context, events chan<- Event) error
}

// ScreenSaver watches the GNOME screen saver on the D-Bus session bus.
type ScreenSaver struct {
	conn *dbus.Conn
}

// dialFunc lets tests substitute the session bus connection.
type dialFunc func() (*dbus.Conn, error)

// Connect dials the session bus, retrying within the fixed budget before
// giving up with ErrWatcherUnavailable.
func Connect() (*ScreenSaver, error) {
	return connectWithRetry(func() (*dbus.Conn, error) {
		return dbus.ConnectSessionBus()
	}, connectAttempts, connectDelay)
}

func connectWithRetry(dial dialFunc, attempts int, delay time.Duration) (*ScreenSaver, error) {
	var lastErr error

	for i := 0; i < attempts; i++ {
		conn, err := dial()
		if err == nil {
			return &ScreenSaver{conn: conn}, nil
		}

		lastErr = err
		slog.Warn("session bus not ready, retrying", "attempt", i+1, "error", err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%w: %v", ErrWatcherUnavailable, lastErr)
}

// Watch subscribes to org.gnome.ScreenSaver ActiveChanged signals and
// forwards them as presence events until ctx is cancelled.
func (s *ScreenSaver) Watch(ctx context.Context, events chan<- Event) error {
	defer s.conn.Close()

	if err := s.conn.AddMatchSignal(
		dbus.WithMatchObjectPath("/org/gnome/ScreenSaver"),
		dbus.WithMatchInterface("org.gnome.ScreenSaver"),
		dbus.WithMatchMember("ActiveChanged"),
	); err != nil {
		return fmt.Errorf("%w: add match failed: %v", ErrWatcherUnavailable, err)
	}

	signals := make(chan *dbus.Signal, 10)
	s.conn.Signal(signals)

	slog.Info("watching gnome screen saver")

	for {
		select {
		case sig := <-signals:
			if sig == nil || len(sig.Body) == 0 {
				continue
			}

			active, ok := sig.Body[0].(bool)
			if !ok {
				slog.Warn("unexpected ActiveChanged payload", "body", sig.Body)
				continue
			}

			select {
			case events <- Event{Locked: active, At: time.Now()}:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/watcher"
)

// ledgerSpy records the order of ledger calls made by the dispatcher.
type ledgerSpy struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (s *ledgerSpy) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call)

	if s.fail {
		return errors.New("store blew up")
	}

	return nil
}

func (s *ledgerSpy) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.calls))
	copy(out, s.calls)

	return out
}

func (s *ledgerSpy) RecordIn() error  { return s.record("in") }
func (s *ledgerSpy) RecordOut() error { return s.record("out") }
func (s *ledgerSpy) StartBreak() error {
	return s.record("break")
}

func (s *ledgerSpy) AddNote(day, text string) error {
	return s.record("note")
}

func (s *ledgerSpy) Today() (*models.PunchRecord, error) {
	_ = s.record("today")
	return &models.PunchRecord{Day: "2024-01-15"}, nil
}

func (s *ledgerSpy) Month(string) ([]models.PunchRecord, error) {
	return nil, nil
}

func (s *ledgerSpy) PeriodTotal(start, end string) (time.Duration, time.Duration, error) {
	return 0, 0, nil
}

func (s *ledgerSpy) Close() error { return nil }

// runDispatcher enqueues everything up front, then runs until the quit
// command drains the queue. The queue is buffered well past what any test
// feeds, so feed never blocks.
func runDispatcher(t *testing.T, spy *ledgerSpy, feed func(d *Dispatcher)) *Dispatcher {
	t.Helper()

	d := New(spy)
	d.notify = func(*models.PunchRecord) {}

	feed(d)
	d.Send(CmdQuit)

	done := make(chan error, 1)

	go func() {
		done <- d.Run(context.Background())
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not shut down")
	}

	return d
}

func TestDispatcherProcessesInOrder(t *testing.T) {
	spy := &ledgerSpy{}

	d := runDispatcher(t, spy, func(d *Dispatcher) {
		d.Enqueue(watcher.Event{Locked: true})
		d.Enqueue(watcher.Event{Locked: false})
		d.Send(CmdBreakStart)
		d.Enqueue(watcher.Event{Locked: false})
	})

	// opening punch-in, then the fed messages in order, then the drain punch-out
	want := []string{"in", "out", "in", "break", "in", "out"}
	got := spy.recorded()

	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}

	if d.State() != Draining {
		t.Errorf("state = %v, want Draining", d.State())
	}
}

func TestDispatcherFinalPunchOutExactlyOnce(t *testing.T) {
	spy := &ledgerSpy{}

	runDispatcher(t, spy, func(*Dispatcher) {})

	var outs int
	for _, c := range spy.recorded() {
		if c == "out" {
			outs++
		}
	}

	if outs != 1 {
		t.Errorf("expected exactly one final punch-out, got %d", outs)
	}
}

func TestDispatcherShowTodayNotifies(t *testing.T) {
	spy := &ledgerSpy{}

	var notified []string

	d := New(spy)
	d.notify = func(rec *models.PunchRecord) {
		notified = append(notified, rec.Day)
	}

	d.Send(CmdShowToday)
	d.Send(CmdQuit)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(notified) != 1 || notified[0] != "2024-01-15" {
		t.Errorf("notify calls = %v", notified)
	}
}

func TestDispatcherSurvivesStoreFailures(t *testing.T) {
	spy := &ledgerSpy{fail: true}

	runDispatcher(t, spy, func(d *Dispatcher) {
		d.Enqueue(watcher.Event{Locked: true})
		d.Send(CmdBreakStart)
		d.Enqueue(watcher.Event{Locked: false})
	})

	// every call failed, but the dispatcher kept going and still drained
	if got := len(spy.recorded()); got < 5 {
		t.Errorf("expected the dispatcher to keep dispatching, got %v", spy.recorded())
	}
}

func TestDispatcherDrainsOnContextCancel(t *testing.T) {
	spy := &ledgerSpy{}

	d := New(spy)
	d.notify = func(*models.PunchRecord) {}

	// headless: presence events only, shutdown comes from the context
	d.Enqueue(watcher.Event{Locked: true})
	d.Enqueue(watcher.Event{Locked: false})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := spy.recorded()
	if len(got) < 3 {
		t.Fatalf("calls = %v", got)
	}

	if got[len(got)-1] != "out" {
		t.Errorf("expected final punch-out, calls = %v", got)
	}
}

func TestDispatcherForwardBridgesEvents(t *testing.T) {
	spy := &ledgerSpy{}

	d := New(spy)
	d.notify = func(*models.PunchRecord) {}

	events := make(chan watcher.Event)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwdDone := make(chan struct{})

	go func() {
		d.Forward(ctx, events)
		close(fwdDone)
	}()

	events <- watcher.Event{Locked: true}
	close(events)
	<-fwdDone

	d.Send(CmdQuit)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got := spy.recorded()
	// opening in, bridged lock-out, drain out
	want := []string{"in", "out", "out"}

	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

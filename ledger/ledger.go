// Package ledger records punches, breaks, and notes across interchangeable
// storage backends and answers monthly aggregation queries.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/dahallgren/bundyclock/internal/models"
)

var (
	// ErrParse indicates a malformed stored timestamp or date. It is
	// localized to the single record and never aborts a batch read.
	ErrParse = errors.New("malformed ledger record")

	// ErrNotFound indicates a query for a day that has no data yet.
	ErrNotFound = errors.New("no ledger entry for day")

	// ErrStoreUnavailable indicates an I/O or connection failure. Persisted
	// state is never corrupted by an operation failing with it.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// Ledger is the capability set every storage backend implements. Backends
// without break or note support degrade those calls to logged no-ops.
//
// Implementations are not internally locked: all mutations must be
// serialized through a single thread of control (the dispatcher).
type Ledger interface {
	// RecordIn marks the start of presence for now. The first call of the
	// day creates the record; later calls only close an open break.
	RecordIn() error

	// RecordOut sets the check-out time to now and recomputes the total.
	// If today has no record yet, one is created with in = out = now.
	RecordOut() error

	// StartBreak opens a new break interval for today.
	StartBreak() error

	// AddNote appends a free-text note to the given day.
	AddNote(day, text string) error

	// Today returns today's record merged with its break aggregate.
	Today() (*models.PunchRecord, error)

	// Month returns one row per day with at least a check-in, ordered by
	// day ascending.
	Month(yearMonth string) ([]models.PunchRecord, error)

	// PeriodTotal sums worked and closed break durations over an inclusive
	// day range.
	PeriodTotal(start, end string) (worked, brk time.Duration, err error)

	Close() error
}

// Kind selects a concrete storage backend.
type Kind string

const (
	KindFlatFile Kind = "text"
	KindDocument Kind = "json"
	KindSqlite   Kind = "sqlite"
	KindRemote   Kind = "http-rest"
)

// Config carries the backend selection and its location. Paths are always
// explicit; the ledger never depends on the process working directory.
type Config struct {
	Kind    Kind
	Path    string
	BaseURL string
}

// New constructs the backend selected by cfg.Kind. The sqlite backend is
// migrated to the current schema version before it is returned.
func New(cfg Config) (Ledger, error) {
	switch cfg.Kind {
	case KindFlatFile:
		return NewFlatFile(cfg.Path), nil
	case KindDocument:
		return NewDocument(cfg.Path), nil
	case KindSqlite:
		l, err := NewSqlite(cfg.Path)
		if err != nil {
			return nil, err
		}

		if err := l.Migrate(); err != nil {
			_ = l.Close()
			return nil, err
		}

		return l, nil
	case KindRemote:
		return NewRemote(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %q", cfg.Kind)
	}
}

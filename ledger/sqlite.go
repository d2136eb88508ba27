package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// SqliteLedger is the transactional backend with full break and note
// support. Every mutation is a single auto-committed statement.
type SqliteLedger struct {
	db  *sql.DB
	now func() time.Time
}

// NewSqlite opens a database handle at path without touching the schema.
// Callers run Migrate before using the ledger; the factory does both.
func NewSqlite(path string) (*SqliteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &SqliteLedger{
		db:  db,
		now: time.Now,
	}, nil
}

// Migrate brings the schema up to the current version.
func (l *SqliteLedger) Migrate() error {
	return migrate(l.db, schemaVersion)
}

func (l *SqliteLedger) RecordIn() error {
	if err := l.endOpenBreak(); err != nil {
		return err
	}

	day := timeutil.DayKey(l.now())
	clock := timeutil.NewClock(l.now()).String()

	var exists string

	err := l.db.QueryRow("SELECT day FROM workdays WHERE day = ?", day).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = l.db.Exec(
			"INSERT INTO workdays (day, intime, outtime, total) VALUES (?, ?, ?, ?)",
			day, clock, clock, "00:00:00",
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		// first-writer-wins: today's check-in stands
		return nil
	}
}

func (l *SqliteLedger) RecordOut() error {
	day := timeutil.DayKey(l.now())
	clock := timeutil.NewClock(l.now())

	var intime string

	err := l.db.QueryRow("SELECT intime FROM workdays WHERE day = ?", day).Scan(&intime)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = l.db.Exec(
			"INSERT INTO workdays (day, intime, outtime, total) VALUES (?, ?, ?, ?)",
			day, clock.String(), clock.String(), "00:00:00",
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	in, err := timeutil.ParseClock(intime)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	_, err = l.db.Exec(
		"UPDATE workdays SET outtime = ?, total = ? WHERE day = ?",
		clock.String(), timeutil.FormatDuration(clock.Sub(in)), day,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

func (l *SqliteLedger) StartBreak() error {
	day := timeutil.DayKey(l.now())

	var open int64

	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM breaks WHERE day = ? AND "end" IS NULL`, day,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if open > 0 {
		// deliberate policy: a second break-start is ignored, not stacked
		slog.Warn("break already open, ignoring break-start", "day", day)
		return nil
	}

	_, err = l.db.Exec(
		"INSERT INTO breaks (day, start) VALUES (?, ?)",
		day, timeutil.NewClock(l.now()).String(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// endOpenBreak closes the latest open break for today and prunes any other
// dangling break rows, such as breaks left open across a restart.
func (l *SqliteLedger) endOpenBreak() error {
	day := timeutil.DayKey(l.now())

	var id int64

	err := l.db.QueryRow(
		`SELECT id FROM breaks WHERE day = ? AND "end" IS NULL ORDER BY start DESC LIMIT 1`,
		day,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return l.pruneStaleBreaks()
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = l.db.Exec(
		`UPDATE breaks SET "end" = ? WHERE id = ?`,
		timeutil.NewClock(l.now()).String(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	slog.Info("break ended", "day", day)

	return l.pruneStaleBreaks()
}

func (l *SqliteLedger) pruneStaleBreaks() error {
	res, err := l.db.Exec(`DELETE FROM breaks WHERE "end" IS NULL`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("pruned stale break records", "count", n)
	}

	return nil
}

func (l *SqliteLedger) AddNote(day, text string) error {
	if _, err := time.Parse(timeutil.DayLayout, day); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	_, err := l.db.Exec("INSERT INTO notes (day, note) VALUES (?, ?)", day, text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

func (l *SqliteLedger) Today() (*models.PunchRecord, error) {
	day := timeutil.DayKey(l.now())

	rec, err := l.day(day)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		// no punches yet: a zero-valued record, not an error
		return &models.PunchRecord{Day: day}, nil
	}

	return rec, nil
}

func (l *SqliteLedger) Month(yearMonth string) ([]models.PunchRecord, error) {
	start, end, err := timeutil.MonthBounds(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rows, err := l.db.Query(
		"SELECT day, intime, outtime FROM workdays WHERE day BETWEEN ? AND ? ORDER BY day",
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var recs []models.PunchRecord

	for rows.Next() {
		var day, intime, outtime string

		if err := rows.Scan(&day, &intime, &outtime); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		rec, err := rowToModel(day, intime, outtime)
		if err != nil {
			slog.Warn("skipping unparseable workday row", "day", day, "error", err)
			continue
		}

		recs = append(recs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for i := range recs {
		if err := l.attachAggregates(&recs[i]); err != nil {
			return nil, err
		}
	}

	return recs, nil
}

func (l *SqliteLedger) PeriodTotal(start, end string) (time.Duration, time.Duration, error) {
	rows, err := l.db.Query(
		"SELECT total FROM workdays WHERE day BETWEEN ? AND ?", start, end,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var worked time.Duration

	for rows.Next() {
		var total string

		if err := rows.Scan(&total); err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		d, err := timeutil.ParseDuration(total)
		if err != nil {
			slog.Warn("skipping unparseable total", "total", total)
			continue
		}

		worked += d
	}

	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	brk, err := l.breakTotal(start, end)
	if err != nil {
		return 0, 0, err
	}

	return worked, brk, nil
}

func (l *SqliteLedger) Close() error {
	return l.db.Close()
}

// day fetches a single workday row merged with its break aggregate and
// notes. Returns nil when the day has no record.
func (l *SqliteLedger) day(day string) (*models.PunchRecord, error) {
	var intime, outtime string

	err := l.db.QueryRow(
		"SELECT intime, outtime FROM workdays WHERE day = ?", day,
	).Scan(&intime, &outtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := rowToModel(day, intime, outtime)
	if err != nil {
		return nil, err
	}

	if err := l.attachAggregates(rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// attachAggregates fills in the closed-break aggregate and the day's notes.
// Counting closed breaks per day separately guards against double counting
// when a day has several break or note rows.
func (l *SqliteLedger) attachAggregates(rec *models.PunchRecord) error {
	rows, err := l.db.Query(
		`SELECT start, "end" FROM breaks WHERE day = ? AND "end" IS NOT NULL`, rec.Day,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var start, end string

		if err := rows.Scan(&start, &end); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		s, err := timeutil.ParseClock(start)
		if err != nil {
			slog.Warn("skipping unparseable break row", "day", rec.Day)
			continue
		}

		e, err := timeutil.ParseClock(end)
		if err != nil {
			slog.Warn("skipping unparseable break row", "day", rec.Day)
			continue
		}

		rec.BreakCount++
		rec.BreakDuration += e.Sub(s)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	notes, err := l.db.Query(
		"SELECT note FROM notes WHERE day = ? ORDER BY id", rec.Day,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer notes.Close()

	for notes.Next() {
		var note string

		if err := notes.Scan(&note); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		rec.Notes = append(rec.Notes, note)
	}

	return notes.Err()
}

func (l *SqliteLedger) breakTotal(start, end string) (time.Duration, error) {
	rows, err := l.db.Query(
		`SELECT start, "end" FROM breaks WHERE day BETWEEN ? AND ? AND "end" IS NOT NULL`,
		start, end,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var total time.Duration

	for rows.Next() {
		var s, e string

		if err := rows.Scan(&s, &e); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		sc, err := timeutil.ParseClock(s)
		if err != nil {
			continue
		}

		ec, err := timeutil.ParseClock(e)
		if err != nil {
			continue
		}

		total += ec.Sub(sc)
	}

	return total, rows.Err()
}

func rowToModel(day, intime, outtime string) (*models.PunchRecord, error) {
	in, err := timeutil.ParseClock(intime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out, err := timeutil.ParseClock(outtime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rec := &models.PunchRecord{Day: day, In: in, Out: out}
	rec.Recompute()

	return rec, nil
}

package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// schemaVersion is the version an up-to-date store reports.
const schemaVersion = 3

// A migration upgrades the schema from version-1 to version. Each apply
// must be idempotent: running it against a store that already carries the
// target schema is a no-op.
type migration struct {
	version int
	name    string
	apply   func(db *sql.DB) error
}

var migrations = []migration{
	{version: 1, name: "normalize day format", apply: migrateDayFormat},
	{version: 2, name: "create breaks table", apply: migrateBreaksTable},
	{version: 3, name: "create notes table", apply: migrateNotesTable},
}

// migrate applies every migration above the store's current version, in
// order, up to target. The version number is committed after each step, so
// an interrupted run resumes where it stopped.
func migrate(db *sql.DB, target int) error {
	if err := ensureBaseSchema(db); err != nil {
		return err
	}

	current, err := userVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}

		slog.Info("applying migration", "version", m.version, "name", m.name)

		if err := m.apply(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}

		// A failure to persist the new version is fatal: the store stays at
		// the old version and the runner retries on the next startup.
		if err := setUserVersion(db, m.version); err != nil {
			return fmt.Errorf("migration %d (%s): commit version: %w", m.version, m.name, err)
		}
	}

	return nil
}

func ensureBaseSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workdays (
			day TEXT UNIQUE,
			intime TEXT,
			outtime TEXT,
			total TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var v int

	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return v, nil
}

func setUserVersion(db *sql.DB, v int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// migrateDayFormat rewrites legacy dotted day keys (2006.01.02) to the
// canonical dashed form. Rows that do not parse are skipped and counted;
// partial success is reported, not fatal.
func migrateDayFormat(db *sql.DB) error {
	rows, err := db.Query("SELECT day FROM workdays")
	if err != nil {
		return err
	}
	defer rows.Close()

	var days []string

	for rows.Next() {
		var day string

		if err := rows.Scan(&day); err != nil {
			return err
		}

		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	var updated int

	for _, day := range days {
		t, err := time.Parse(timeutil.DottedDayLayout, day)
		if err != nil {
			continue
		}

		if _, err := db.Exec(
			"UPDATE workdays SET day = ? WHERE day = ?", timeutil.DayKey(t), day,
		); err != nil {
			return err
		}

		updated++
	}

	slog.Info("normalized day keys", "updated", updated, "total", len(days))

	return nil
}

func migrateBreaksTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS breaks (
			id INTEGER PRIMARY KEY,
			day TEXT NOT NULL,
			start TEXT NOT NULL,
			"end" TEXT NULL
		);
	`)

	return err
}

func migrateNotesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY,
			day TEXT NOT NULL,
			note TEXT NOT NULL
		);
	`)

	return err
}

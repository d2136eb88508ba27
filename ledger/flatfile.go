package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// recordLine matches one flat-file ledger line.
var recordLine = regexp.MustCompile(
	`^(?P<day>\d{4}\.\d{2}\.\d{2}) - In: (?P<in>\S+) Out: (?P<out>\S+) Total: (?P<total>\S+)\s*$`,
)

// FlatFileLedger persists punches as newline-delimited text records. The
// rewrite of "today" is line-indexed rather than byte-offset based: the file
// is read in full, the last line replaced when it belongs to today, and the
// whole file written back atomically. Breaks and notes are not supported.
type FlatFileLedger struct {
	path string
	now  func() time.Time
}

// NewFlatFile returns a flat-file ledger stored at path. The file is created
// on the first punch.
func NewFlatFile(path string) *FlatFileLedger {
	return &FlatFileLedger{
		path: path,
		now:  time.Now,
	}
}

func (l *FlatFileLedger) RecordIn() error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}

	today := l.now().Format(timeutil.DottedDayLayout)

	if len(lines) > 0 {
		if rec, err := parseLine(lines[len(lines)-1]); err == nil && rec.day == today {
			// first-writer-wins: today's check-in is already recorded
			return nil
		}
	}

	clock := timeutil.NewClock(l.now())
	lines = append(lines, formatLine(today, clock, clock, 0))

	return l.writeLines(lines)
}

func (l *FlatFileLedger) RecordOut() error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}

	today := l.now().Format(timeutil.DottedDayLayout)
	clock := timeutil.NewClock(l.now())

	if len(lines) > 0 {
		rec, err := parseLine(lines[len(lines)-1])
		if err == nil && rec.day == today {
			lines[len(lines)-1] = formatLine(today, rec.in, clock, clock.Sub(rec.in))
			return l.writeLines(lines)
		}
	}

	lines = append(lines, formatLine(today, clock, clock, 0))

	return l.writeLines(lines)
}

// StartBreak is a logged no-op: the flat-file layout has no break records.
func (l *FlatFileLedger) StartBreak() error {
	slog.Warn("breaks are not supported by the text ledger")
	return nil
}

// AddNote is a logged no-op: the flat-file layout has no note records.
func (l *FlatFileLedger) AddNote(day, text string) error {
	slog.Warn("notes are not supported by the text ledger", "day", day)
	return nil
}

func (l *FlatFileLedger) Today() (*models.PunchRecord, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}

	today := l.now().Format(timeutil.DottedDayLayout)

	for i := len(lines) - 1; i >= 0; i-- {
		rec, err := parseLine(lines[i])
		if err != nil {
			continue
		}

		if rec.day == today {
			return rec.toModel()
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, timeutil.DayKey(l.now()))
}

func (l *FlatFileLedger) Month(yearMonth string) ([]models.PunchRecord, error) {
	start, end, err := timeutil.MonthBounds(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return l.scan(start, end)
}

func (l *FlatFileLedger) PeriodTotal(start, end string) (time.Duration, time.Duration, error) {
	rows, err := l.scan(start, end)
	if err != nil {
		return 0, 0, err
	}

	var worked time.Duration
	for _, r := range rows {
		worked += r.Total
	}

	return worked, 0, nil
}

func (l *FlatFileLedger) Close() error {
	return nil
}

// scan collects the records within the inclusive day range, skipping
// unparseable lines.
func (l *FlatFileLedger) scan(start, end string) ([]models.PunchRecord, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}

	var rows []models.PunchRecord

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			slog.Warn("skipping unparseable ledger line", "error", err)
			continue
		}

		m, err := rec.toModel()
		if err != nil {
			slog.Warn("skipping unparseable ledger line", "error", err)
			continue
		}

		if m.Day >= start && m.Day <= end {
			rows = append(rows, *m)
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })

	return rows, nil
}

func (l *FlatFileLedger) readLines() ([]string, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var lines []string

	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// writeLines replaces the ledger file atomically so that a failed write
// never corrupts the previous state.
func (l *FlatFileLedger) writeLines(lines []string) error {
	content := strings.Join(lines, "\n") + "\n"

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".bundyclock-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// textRecord is one parsed flat-file line before conversion to the model.
type textRecord struct {
	day     string
	in, out timeutil.Clock
	total   string
}

func parseLine(line string) (*textRecord, error) {
	m := recordLine.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrParse, line)
	}

	in, err := timeutil.ParseClock(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out, err := timeutil.ParseClock(m[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return &textRecord{day: m[1], in: in, out: out, total: m[4]}, nil
}

func (r *textRecord) toModel() (*models.PunchRecord, error) {
	t, err := time.Parse(timeutil.DottedDayLayout, r.day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rec := &models.PunchRecord{
		Day: timeutil.DayKey(t),
		In:  r.in,
		Out: r.out,
	}
	rec.Recompute()

	return rec, nil
}

func formatLine(day string, in, out timeutil.Clock, total time.Duration) string {
	return fmt.Sprintf(
		"%s - In: %s Out: %s Total: %s",
		day, in, out, timeutil.FormatDuration(total),
	)
}

package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// docEntry is one day inside the JSON document. The field names and the
// "YYYY.MM.DD - Dow" keys are the legacy on-disk layout and must not change.
type docEntry struct {
	In    string   `json:"in"`
	Out   string   `json:"out"`
	Total string   `json:"total"`
	Notes []string `json:"notes,omitempty"`
}

// DocumentLedger persists the whole ledger as a single JSON object keyed by
// day. Every mutation is a whole-document read-modify-write; a single-writer
// discipline is assumed (enforced by the dispatcher). Breaks are not
// supported, notes are.
type DocumentLedger struct {
	path string
	now  func() time.Time
}

// NewDocument returns a document ledger stored at path.
func NewDocument(path string) *DocumentLedger {
	return &DocumentLedger{
		path: path,
		now:  time.Now,
	}
}

func (l *DocumentLedger) RecordIn() error {
	doc, err := l.load()
	if err != nil {
		return err
	}

	key := timeutil.DocumentKey(l.now())

	entry, ok := doc[key]
	if ok && entry.In != "" {
		// check-in is recorded once per day
		return nil
	}

	clock := timeutil.NewClock(l.now()).String()
	entry.In = clock
	entry.Out = clock
	entry.Total = "00:00:00"
	doc[key] = entry

	return l.store(doc)
}

func (l *DocumentLedger) RecordOut() error {
	doc, err := l.load()
	if err != nil {
		return err
	}

	key := timeutil.DocumentKey(l.now())
	clock := timeutil.NewClock(l.now())

	entry := doc[key]
	if entry.In == "" {
		entry.In = clock.String()
	}

	in, err := timeutil.ParseClock(entry.In)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	entry.Out = clock.String()
	entry.Total = timeutil.FormatDuration(clock.Sub(in))
	doc[key] = entry

	return l.store(doc)
}

// StartBreak is a logged no-op: the document layout has no break records.
func (l *DocumentLedger) StartBreak() error {
	slog.Warn("breaks are not supported by the json ledger")
	return nil
}

// AddNote appends a note to the given day, creating the day entry if needed.
func (l *DocumentLedger) AddNote(day, text string) error {
	t, err := time.Parse(timeutil.DayLayout, day)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc, err := l.load()
	if err != nil {
		return err
	}

	key := timeutil.DocumentKey(t)
	entry := doc[key]
	entry.Notes = append(entry.Notes, text)
	doc[key] = entry

	return l.store(doc)
}

func (l *DocumentLedger) Today() (*models.PunchRecord, error) {
	doc, err := l.load()
	if err != nil {
		return nil, err
	}

	key := timeutil.DocumentKey(l.now())

	entry, ok := doc[key]
	if !ok || entry.In == "" {
		// a note-only entry is not a punch record yet
		return nil, fmt.Errorf("%w: %s", ErrNotFound, timeutil.DayKey(l.now()))
	}

	return entryToModel(timeutil.DayKey(l.now()), entry)
}

func (l *DocumentLedger) Month(yearMonth string) ([]models.PunchRecord, error) {
	start, end, err := timeutil.MonthBounds(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return l.scan(start, end)
}

func (l *DocumentLedger) PeriodTotal(start, end string) (time.Duration, time.Duration, error) {
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

func (l *DocumentLedger) Close() error {
	return nil
}

func (l *DocumentLedger) scan(start, end string) ([]models.PunchRecord, error) {
	doc, err := l.load()
	if err != nil {
		return nil, err
	}

	var rows []models.PunchRecord

	for key, entry := range doc {
		t, err := time.Parse(timeutil.DocumentKeyLayout, key)
		if err != nil {
			slog.Warn("skipping entry with unparseable day key", "key", key)
			continue
		}

		day := timeutil.DayKey(t)
		if day < start || day > end {
			continue
		}

		rec, err := entryToModel(day, entry)
		if err != nil {
			slog.Warn("skipping unparseable ledger entry", "key", key, "error", err)
			continue
		}

		rows = append(rows, *rec)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })

	return rows, nil
}

// load reads the whole document. A missing file yields an empty document so
// that the first mutation can create it.
func (l *DocumentLedger) load() (map[string]docEntry, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]docEntry{}, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	doc := map[string]docEntry{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return doc, nil
}

// store rewrites the whole document atomically.
func (l *DocumentLedger) store(doc map[string]docEntry) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".bundyclock-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := tmp.Write(b); err != nil {
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

func entryToModel(day string, entry docEntry) (*models.PunchRecord, error) {
	in, err := timeutil.ParseClock(entry.In)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out, err := timeutil.ParseClock(entry.Out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rec := &models.PunchRecord{
		Day:   day,
		In:    in,
		Out:   out,
		Notes: entry.Notes,
	}
	rec.Recompute()

	return rec, nil
}

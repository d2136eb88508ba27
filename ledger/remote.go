package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// remoteDay is the wire representation of one workday resource.
type remoteDay struct {
	Date      string `json:"date"`
	In        string `json:"intime"`
	Out       string `json:"outtime"`
	Total     string `json:"total,omitempty"`
	NumBreaks int    `json:"num_breaks,omitempty"`
	BreakSecs int    `json:"break_secs,omitempty"`
}

// remoteTotals is the response of the total_sum endpoint, in seconds.
type remoteTotals struct {
	TotalSum   int `json:"total_sum"`
	TotalBreak int `json:"total_break"`
}

// RemoteLedger punches against a REST collection of workday resources.
// Mutations are best-effort telemetry: network failures are logged and
// swallowed, because a missed punch is preferable to a crashed daemon.
// Queries do surface failures to the caller.
type RemoteLedger struct {
	base   string
	client *http.Client
	now    func() time.Time
}

// NewRemote returns a ledger backed by the collection at baseURL.
func NewRemote(baseURL string) *RemoteLedger {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &RemoteLedger{
		base:   baseURL,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

func (l *RemoteLedger) RecordIn() error {
	l.upsertToday()
	return nil
}

func (l *RemoteLedger) RecordOut() error {
	l.upsertToday()
	return nil
}

// StartBreak is a logged no-op: the remote collection has no break resource.
func (l *RemoteLedger) StartBreak() error {
	slog.Warn("breaks are not supported by the http-rest ledger")
	return nil
}

// AddNote is a logged no-op: the remote collection has no note resource.
func (l *RemoteLedger) AddNote(day, text string) error {
	slog.Warn("notes are not supported by the http-rest ledger", "day", day)
	return nil
}

// upsertToday reconciles today's resource with the current wall clock: POST
// when the day does not exist yet (404), PUT with an updated check-out when
// it does (200).
func (l *RemoteLedger) upsertToday() {
	day := timeutil.DayKey(l.now())
	clock := timeutil.NewClock(l.now()).String()
	itemURL := l.base + day + "/"

	resp, err := l.client.Get(itemURL)
	if err != nil {
		slog.Error("remote ledger unreachable, punch dropped", "error", err)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		created := remoteDay{Date: day, In: clock, Out: clock}
		if err := l.send(http.MethodPost, l.base, created); err != nil {
			slog.Error("failed to create remote workday", "day", day, "error", err)
		}
	case http.StatusOK:
		var current remoteDay

		if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
			slog.Error("malformed remote workday", "day", day, "error", err)
			return
		}

		current.Out = clock

		if in, err := timeutil.ParseClock(current.In); err == nil {
			out := timeutil.NewClock(l.now())
			current.Total = timeutil.FormatDuration(out.Sub(in))
		}

		if err := l.send(http.MethodPut, itemURL, current); err != nil {
			slog.Error("failed to update remote workday", "day", day, "error", err)
		}
	default:
		slog.Error("unexpected status from remote ledger",
			"day", day, "status", resp.StatusCode)
	}
}

func (l *RemoteLedger) send(method, rawURL string, day remoteDay) error {
	body, err := json.Marshal(day)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(method, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrStoreUnavailable, resp.StatusCode)
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (l *RemoteLedger) Today() (*models.PunchRecord, error) {
	day := timeutil.DayKey(l.now())

	resp, err := l.client.Get(l.base + day + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		// no punches yet: a zero-valued record, not an error
		return &models.PunchRecord{Day: day}, nil
	case http.StatusOK:
		var rd remoteDay

		if err := json.NewDecoder(resp.Body).Decode(&rd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		return rd.toModel()
	default:
		return nil, fmt.Errorf("%w: status %d", ErrStoreUnavailable, resp.StatusCode)
	}
}

func (l *RemoteLedger) Month(yearMonth string) ([]models.PunchRecord, error) {
	start, end, err := timeutil.MonthBounds(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	q := url.Values{"start_date": {start}, "end_date": {end}}

	resp, err := l.client.Get(l.base + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrStoreUnavailable, resp.StatusCode)
	}

	var days []remoteDay

	if err := json.NewDecoder(resp.Body).Decode(&days); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	recs := make([]models.PunchRecord, 0, len(days))

	for _, rd := range days {
		rec, err := rd.toModel()
		if err != nil {
			slog.Warn("skipping unparseable remote workday", "day", rd.Date, "error", err)
			continue
		}

		recs = append(recs, *rec)
	}

	// the server's listing order is not part of the contract
	sort.Slice(recs, func(i, j int) bool { return recs[i].Day < recs[j].Day })

	return recs, nil
}

func (l *RemoteLedger) PeriodTotal(start, end string) (time.Duration, time.Duration, error) {
	q := url.Values{"start_date": {start}, "end_date": {end}}

	resp, err := l.client.Get(l.base + "total_sum/?" + q.Encode())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("%w: status %d", ErrStoreUnavailable, resp.StatusCode)
	}

	var totals remoteTotals

	if err := json.NewDecoder(resp.Body).Decode(&totals); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrParse, err)
	}

	worked := time.Duration(totals.TotalSum) * time.Second
	brk := time.Duration(totals.TotalBreak) * time.Second

	return worked, brk, nil
}

func (l *RemoteLedger) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

func (rd remoteDay) toModel() (*models.PunchRecord, error) {
	in, err := timeutil.ParseClock(rd.In)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out, err := timeutil.ParseClock(rd.Out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	rec := &models.PunchRecord{
		Day:           rd.Date,
		In:            in,
		Out:           out,
		BreakCount:    rd.NumBreaks,
		BreakDuration: time.Duration(rd.BreakSecs) * time.Second,
	}
	rec.Recompute()

	return rec, nil
}

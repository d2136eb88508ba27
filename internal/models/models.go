// Package models holds the in-memory representations of the attendance
// ledger: punch records, break intervals, notes, and report rows.
package models

import (
	"fmt"
	"time"

	"github.com/dahallgren/bundyclock/internal/timeutil"
)

// PunchRecord is one calendar day's attendance entry. There is at most one
// per day, keyed by the dashed day string.
type PunchRecord struct {
	Day           string         `json:"day"`
	In            timeutil.Clock `json:"intime"`
	Out           timeutil.Clock `json:"outtime"`
	Total         time.Duration  `json:"total"`
	BreakCount    int            `json:"break_count"`
	BreakDuration time.Duration  `json:"break_duration"`
	Notes         []string       `json:"notes,omitempty"`
}

// Recompute rederives Total from the current In/Out pair. Totals are never
// accumulated incrementally.
func (p *PunchRecord) Recompute() {
	p.Total = p.Out.Sub(p.In)
}

func (p *PunchRecord) String() string {
	return fmt.Sprintf(
		"%s - In: %s Out: %s Total: %s. Breaks today %d - %s",
		p.Day,
		p.In,
		p.Out,
		timeutil.FormatDuration(p.Total),
		p.BreakCount,
		timeutil.FormatDuration(p.BreakDuration),
	)
}

// BreakInterval is a pause within a single day's record. End is nil while
// the break is still open; at most one break per day may be open.
type BreakInterval struct {
	ID    int64           `json:"id"`
	Day   string          `json:"day"`
	Start timeutil.Clock  `json:"start"`
	End   *timeutil.Clock `json:"end"`
}

// Note is a free-text annotation attached to a day. Notes are append-only.
type Note struct {
	ID   int64  `json:"id"`
	Day  string `json:"day"`
	Text string `json:"note"`
}

// MonthlyReport is the derived aggregation over one month. It is computed
// on demand and never persisted.
type MonthlyReport struct {
	Month       string        `json:"month"`
	Rows        []PunchRecord `json:"workdays"`
	TotalWorked time.Duration `json:"total_worked"`
	TotalBreak  time.Duration `json:"total_break"`
}

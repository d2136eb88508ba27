// Package report aggregates a month of punch records and renders them
// through a user-overridable text template.
package report

import (
	_ "embed"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/internal/timeutil"
	"github.com/dahallgren/bundyclock/ledger"
)

//go:embed monthly.tmpl
var DefaultTemplate string

// Monthly collects the report input for one YYYY-MM month: the per-day rows
// plus the period totals, queried separately so days and breaks are never
// double counted.
func Monthly(l ledger.Ledger, yearMonth string) (*models.MonthlyReport, error) {
	start, end, err := timeutil.MonthBounds(yearMonth)
	if err != nil {
		return nil, err
	}

	rows, err := l.Month(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("collecting month %s: %w", yearMonth, err)
	}

	worked, brk, err := l.PeriodTotal(start, end)
	if err != nil {
		return nil, fmt.Errorf("totalling month %s: %w", yearMonth, err)
	}

	return &models.MonthlyReport{
		Month:       yearMonth,
		Rows:        rows,
		TotalWorked: worked,
		TotalBreak:  brk,
	}, nil
}

// funcs are the helpers exposed to report templates.
var funcs = template.FuncMap{
	// sec2str renders a duration as HH:MM:SS
	"sec2str": timeutil.FormatDuration,
	// lunch subtracts n minutes from a duration, for fixed-length lunch
	// breaks that are never punched
	"lunch": func(d time.Duration, minutes int) time.Duration {
		d -= time.Duration(minutes) * time.Minute
		if d < 0 {
			d = 0
		}

		return d
	},
	// str2sec parses HH:MM:SS into whole seconds
	"str2sec": func(s string) (int, error) {
		d, err := timeutil.ParseDuration(s)
		if err != nil {
			return 0, err
		}

		return int(d.Seconds()), nil
	},
}

// Render executes tmpl with rep as its dot. An empty tmpl falls back to the
// embedded default.
func Render(w io.Writer, rep *models.MonthlyReport, tmpl string) error {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}

	t, err := template.New("monthly").Funcs(funcs).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parsing report template: %w", err)
	}

	if err := t.Execute(w, rep); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	return nil
}

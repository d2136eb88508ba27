package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/dahallgren/bundyclock/config"
	"github.com/dahallgren/bundyclock/dispatch"
	"github.com/dahallgren/bundyclock/internal/logging"
	"github.com/dahallgren/bundyclock/internal/models"
	"github.com/dahallgren/bundyclock/internal/timeutil"
	"github.com/dahallgren/bundyclock/internal/ui"
	"github.com/dahallgren/bundyclock/ledger"
	"github.com/dahallgren/bundyclock/report"
	"github.com/dahallgren/bundyclock/watcher"
)

const (
	envNoColor      = "NO_COLOR"
	envBundyNoColor = "BUNDYCLOCK_NO_COLOR"
)

var errEmptyNote = errors.New("note text is empty")

// cfg is loaded once in beforeAction and read by every action.
var cfg *config.Config

// firstNonEmptyString returns its first non-empty argument, or "" if all
// arguments are empty.
func firstNonEmptyString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}

	return ""
}

func openLedger() (ledger.Ledger, error) {
	return ledger.New(cfg.Store())
}

// printRecord renders one attendance record as a boxed table.
func printRecord(rec *models.PunchRecord) {
	data := [][]string{
		{"Day", "In", "Out", "Total", "Breaks"},
		{
			rec.Day,
			rec.In.String(),
			rec.Out.String(),
			timeutil.FormatDuration(rec.Total),
			fmt.Sprintf("%d (%s)", rec.BreakCount, timeutil.FormatDuration(rec.BreakDuration)),
		},
	}

	ui.PrintTable(data, os.Stdout)

	for _, note := range rec.Notes {
		pterm.Info.Println(note)
	}
}

// parseDay turns a user-supplied day argument into a YYYY-MM-DD key.
// Anything go-dateparser understands is accepted, "yesterday" included.
func parseDay(s string) (string, error) {
	if s == "" {
		return timeutil.DayKey(time.Now()), nil
	}

	dt, err := dateparser.Parse(nil, s)
	if err != nil {
		return "", fmt.Errorf("unrecognized day %q: %w", s, err)
	}

	return timeutil.DayKey(dt.Time), nil
}

// daemonAction runs the presence watcher until SIGINT/SIGTERM, punching
// the ledger on every lock and unlock.
func daemonAction(ctx *cli.Context) error {
	logging.SetupDaemon(cfg.LogLevel, cfg.LogPath)

	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	src, err := watcher.Connect()
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan watcher.Event, 8)
	d := dispatch.New(l)

	go func() {
		if err := src.Watch(runCtx, events); err != nil {
			slog.Error("presence watcher stopped", "error", err)
		}
	}()

	go d.Forward(runCtx, events)

	slog.Info("bundyclock daemon started",
		"ledger", cfg.LedgerType,
		"version", config.Version,
	)

	return d.Run(runCtx)
}

func inAction(_ *cli.Context) error {
	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.RecordIn(); err != nil {
		return err
	}

	return showToday(l)
}

func outAction(_ *cli.Context) error {
	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.RecordOut(); err != nil {
		return err
	}

	return showToday(l)
}

func breakAction(_ *cli.Context) error {
	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.StartBreak(); err != nil {
		return err
	}

	pterm.Info.Println("break started, it ends at your next punch-in")

	return nil
}

func noteAction(ctx *cli.Context) error {
	text := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if text == "" {
		return errEmptyNote
	}

	day, err := parseDay(ctx.String("day"))
	if err != nil {
		return err
	}

	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	return l.AddNote(day, text)
}

func todayAction(_ *cli.Context) error {
	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	return showToday(l)
}

func showToday(l ledger.Ledger) error {
	rec, err := l.Today()
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			pterm.Info.Println("no punches recorded today")
			return nil
		}

		return err
	}

	printRecord(rec)

	return nil
}

func reportAction(ctx *cli.Context) error {
	yearMonth := time.Now().Format(timeutil.MonthLayout)

	if arg := ctx.Args().First(); arg != "" {
		if _, err := time.Parse(timeutil.MonthLayout, arg); err == nil {
			yearMonth = arg
		} else {
			dt, err := dateparser.Parse(nil, arg)
			if err != nil {
				return fmt.Errorf("unrecognized month %q: %w", arg, err)
			}

			yearMonth = dt.Time.Format(timeutil.MonthLayout)
		}
	}

	tmpl := ""

	if path := firstNonEmptyString(ctx.String("template"), cfg.ReportTemplate); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading report template: %w", err)
		}

		tmpl = string(b)
	}

	l, err := openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	rep, err := report.Monthly(l, yearMonth)
	if err != nil {
		return err
	}

	return report.Render(os.Stdout, rep, tmpl)
}

// defaultAction punches out and prints today's record, so a bare
// `bundyclock` works as a quick end-of-day stamp.
func defaultAction(ctx *cli.Context) error {
	return outAction(ctx)
}

func beforeAction(ctx *cli.Context) error {
	// Override the default help template
	cli.AppHelpTemplate = helpText()

	var err error

	cfg, err = config.Load(ctx.String("config"))
	if err != nil {
		return err
	}

	logging.SetupCLI(cfg.LogLevel)

	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}

	// Disable colour output if NO_COLOR is set
	if _, exists := os.LookupEnv(envNoColor); exists {
		disableStyling()
	}

	// Disable colour output if BUNDYCLOCK_NO_COLOR is set
	if _, exists := os.LookupEnv(envBundyNoColor); exists {
		disableStyling()
	}

	if ctx.Bool("no-color") {
		disableStyling()
	}

	return nil
}

package app

import (
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/dahallgren/bundyclock/config"
)

// disableStyling disables all styling provided by pterm.
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
	pterm.Debug.Prefix.Text = ""
	pterm.Info.Prefix.Text = ""
	pterm.Success.Prefix.Text = ""
	pterm.Warning.Prefix.Text = ""
	pterm.Error.Prefix.Text = ""
	pterm.Fatal.Prefix.Text = ""
}

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Alternative configuration `FILE`",
	}

	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	dayFlag = &cli.StringFlag{
		Name:  "day",
		Usage: "Day the note belongs to (2024-01-15, yesterday, ...). Defaults to today",
	}

	templateFlag = &cli.StringFlag{
		Name:  "template",
		Usage: "Report template `FILE` overriding the built-in one",
	}
)

// Get retrieves the bundyclock app instance.
func Get() *cli.App {
	bundyApp := &cli.App{
		Name: "bundyclock",
		Authors: []*cli.Author{
			{
				Name:  "Dan Hallgren",
				Email: "dan.hallgren@gmail.com",
			},
		},
		Usage: `
		Bundyclock keeps a personal attendance ledger. It watches desktop
		lock/unlock signals to record when your work day starts and ends,
		tracks coffee breaks, and renders monthly reports.`,
		UsageText:            "[COMMAND] [OPTIONS]",
		Version:              config.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "daemon",
				Usage:  "Watch the screen saver and punch in/out automatically",
				Action: daemonAction,
			},
			{
				Name:   "in",
				Usage:  "Punch in for the day",
				Action: inAction,
			},
			{
				Name:   "out",
				Usage:  "Punch out for the day",
				Action: outAction,
			},
			{
				Name:   "break",
				Usage:  "Start a coffee break, closed by the next punch-in",
				Action: breakAction,
			},
			{
				Name:      "note",
				Usage:     "Attach a free-form note to a day",
				ArgsUsage: "TEXT",
				Flags:     []cli.Flag{dayFlag},
				Action:    noteAction,
			},
			{
				Name:   "today",
				Usage:  "Print today's attendance record",
				Action: todayAction,
			},
			{
				Name:      "report",
				Usage:     "Render the monthly report. Defaults to the current month",
				ArgsUsage: "[YYYY-MM]",
				Flags:     []cli.Flag{templateFlag},
				Action:    reportAction,
			},
			{
				Name:   "install",
				Usage:  "Install and start the systemd user service",
				Action: installAction,
			},
		},
		Flags: []cli.Flag{
			configFlag,
			noColorFlag,
		},
		Action: defaultAction,
		Before: beforeAction,
	}

	return bundyApp
}

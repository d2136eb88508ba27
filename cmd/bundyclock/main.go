package main

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pterm/pterm"

	"github.com/dahallgren/bundyclock/app"
	"github.com/dahallgren/bundyclock/report"
)

const dataDir = "bundyclock"

// seedTemplate copies the built-in report template into the data dir once,
// giving users an editable starting point for custom reports.
func seedTemplate() {
	relPath := filepath.Join(dataDir, "monthly.tmpl")

	if _, err := xdg.SearchDataFile(relPath); err == nil {
		return
	}

	path, err := xdg.DataFile(relPath)
	if err != nil {
		return
	}

	_ = os.WriteFile(path, []byte(report.DefaultTemplate), 0o644)
}

func run(args []string) error {
	return app.Get().Run(args)
}

func main() {
	seedTemplate()

	err := run(os.Args)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

package app

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
)

//go:embed files/bundyclock.service
var serviceUnit []byte

// installAction drops the unit file into the systemd user directory and
// enables the service, mirroring what a package post-install would do.
func installAction(ctx *cli.Context) error {
	unitDir := filepath.Join(xdg.ConfigHome, "systemd", "user")

	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return fmt.Errorf("creating systemd user dir: %w", err)
	}

	unitPath := filepath.Join(unitDir, "bundyclock.service")

	if err := os.WriteFile(unitPath, serviceUnit, 0o644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	for _, cmdline := range []string{
		"systemctl --user daemon-reload",
		"systemctl --user enable bundyclock.service",
		"systemctl --user start bundyclock.service",
	} {
		words, err := shellquote.Split(cmdline)
		if err != nil {
			return err
		}

		cmd := exec.CommandContext(ctx.Context, words[0], words[1:]...)

		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%s: %w: %s", cmdline, err, out)
		}
	}

	pterm.Success.Println("systemd user service installed and started")

	return nil
}

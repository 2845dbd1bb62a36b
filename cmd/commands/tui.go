package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/taskpilot/clients/tui"
	"github.com/dohr-michael/taskpilot/internal/coordinator"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive chat and task view",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "poll",
				Usage: "Cron spec for periodic task refresh, e.g. \"@every 30s\" (overrides config)",
			},
		},
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("tui needs an interactive terminal; use 'taskpilot ask' instead")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v := cmd.String("poll"); v != "" {
		cfg.Sync.Poll = v
	}

	// The screen belongs to the UI; logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	log := setupLogging(cmd, cfg, logFile)
	flush := startTelemetry(cfg, log)
	defer flush()

	sess, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		// The UI still opens and shows the connection error.
		log.Warn("agent channel failed to open", "error", err)
	}

	if cfg.Sync.Poll != "" {
		poller, err := coordinator.NewPoller(cfg.Sync.Poll, sess, log)
		if err != nil {
			return fmt.Errorf("sync.poll: %w", err)
		}
		poller.Start()
		defer poller.Stop()
	}

	log.Info("tui started", "chat_url", cfg.Endpoints.ChatURL, "api_url", cfg.Endpoints.APIURL)
	return tui.Run(ctx, sess)
}

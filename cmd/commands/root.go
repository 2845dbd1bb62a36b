package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskpilot/internal/config"
	"github.com/dohr-michael/taskpilot/internal/telemetry"
)

// Version is stamped at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "taskpilot",
		Usage:   "Chat with your task agent and keep the task list in sync",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "chat-url",
				Usage: "Agent websocket URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Task service base URL (overrides config)",
			},
		},
		Commands: []*cli.Command{
			NewTUICommand(),
			NewAskCommand(),
			NewTasksCommand(),
			NewServeCommand(),
			NewStatusCommand(),
		},
	}
}

// loadConfig reads the config file named by --config. A missing file yields
// the defaults. Endpoint flags win over the file.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := cmd.String("chat-url"); v != "" {
		cfg.Endpoints.ChatURL = v
	}
	if v := cmd.String("api-url"); v != "" {
		cfg.Endpoints.APIURL = v
	}
	return cfg, nil
}

// setupLogging installs the default slog logger writing text records to w.
// Records are teed to the error reporter when it is enabled.
func setupLogging(cmd *cli.Command, cfg *config.Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Log.Level)
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	log := slog.New(telemetry.NewHandler(handler))
	slog.SetDefault(log)
	return log
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// startTelemetry enables error reporting when a DSN is configured. The
// returned func flushes pending events.
func startTelemetry(cfg *config.Config, log *slog.Logger) func() {
	if err := telemetry.Init(cfg.Telemetry.SentryDSN, Version); err != nil {
		log.Warn("error reporting disabled", "error", fmt.Errorf("sentry init: %w", err))
		return func() {}
	}
	return telemetry.Flush
}

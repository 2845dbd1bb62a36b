package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskpilot/internal/config"
	"github.com/dohr-michael/taskpilot/internal/heartbeat"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the configured endpoints and whether they answer",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			setupLogging(cmd, cfg, os.Stderr)

			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return printStatus(ctx, os.Stdout, cfg, config.HeartbeatPath(), time.Now())
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, cfg *config.Config, hbPath string, now time.Time) error {
	fmt.Fprintf(w, "Chat:    %s\n", cfg.Endpoints.ChatURL)
	fmt.Fprintf(w, "API:     %s\n", cfg.Endpoints.APIURL)

	health := "OK"
	if err := tasks.NewClient(cfg.Endpoints.APIURL, nil, 0).Health(ctx); err != nil {
		health = "unreachable (" + err.Error() + ")"
	}
	fmt.Fprintf(w, "Service: %s\n", health)

	status, hb, err := heartbeat.Check(hbPath, 2*heartbeat.DefaultInterval, now)
	if err != nil {
		return fmt.Errorf("check dev server: %w", err)
	}
	switch status {
	case heartbeat.StatusAlive:
		fmt.Fprintf(w, "Dev server: RUNNING (PID %d, up %s, store %s, api %s)\n",
			hb.PID, hb.Uptime(), hb.Store, hb.APIURL)
	case heartbeat.StatusStale:
		fmt.Fprintf(w, "Dev server: STALE (PID %d, last heartbeat %s)\n",
			hb.PID, humanize.RelTime(hb.Timestamp, now, "ago", "from now"))
	case heartbeat.StatusDead:
		fmt.Fprintln(w, "Dev server: NOT RUNNING")
	}
	return nil
}

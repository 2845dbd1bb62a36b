package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskpilot/internal/config"
	"github.com/dohr-michael/taskpilot/internal/devserver"
	"github.com/dohr-michael/taskpilot/internal/heartbeat"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local stand-in for the agent and task service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "\"memory\" or a sqlite database path",
			},
			&cli.StringFlag{
				Name:  "seed",
				Usage: "YAML file with tasks to load into an empty store",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dev := cfg.DevServer
	if v := cmd.String("host"); v != "" {
		dev.Host = v
	}
	if v := cmd.Int("port"); v != 0 {
		dev.Port = v
	}
	if v := cmd.String("store"); v != "" {
		dev.Store = v
	}
	if v := cmd.String("seed"); v != "" {
		dev.Seed = v
	}

	log := setupLogging(cmd, cfg, os.Stderr)
	flush := startTelemetry(cfg, log)
	defer flush()

	store, err := devserver.OpenStore(dev.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	if dev.Seed != "" {
		seed, err := devserver.LoadSeed(dev.Seed)
		if err != nil {
			return err
		}
		n, err := devserver.ApplySeed(ctx, store, seed)
		if err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		log.Info("store seeded", "path", dev.Seed, "tasks", n)
	}

	srv := devserver.NewServer(store, dev.Host, dev.Port, log)

	addr := net.JoinHostPort(dev.Host, strconv.Itoa(dev.Port))
	hb := heartbeat.NewWriter(config.HeartbeatPath(), heartbeat.Heartbeat{
		ChatURL: "ws://" + addr + "/api/v1/chat",
		APIURL:  "http://" + addr + "/api/v1",
		Store:   dev.Store,
	}, 0)
	if err := hb.Start(); err != nil {
		log.Warn("heartbeat disabled", "error", err)
	}
	defer hb.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

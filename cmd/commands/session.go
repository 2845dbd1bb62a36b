package commands

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/config"
	"github.com/dohr-michael/taskpilot/internal/coordinator"
	"github.com/dohr-michael/taskpilot/internal/tasks"
	"github.com/dohr-michael/taskpilot/internal/telemetry"
)

// newSession wires a channel manager and a task cache under one coordinator.
// The caller starts and closes it.
func newSession(cfg *config.Config, log *slog.Logger) (*coordinator.Coordinator, error) {
	policy, err := tasks.ParseRefreshPolicy(cfg.Sync.RefreshPolicy)
	if err != nil {
		return nil, fmt.Errorf("sync config: %w", err)
	}

	sessionID := uuid.NewString()
	telemetry.SetSession(sessionID, cfg.Endpoints.ChatURL, cfg.Endpoints.APIURL)

	ch := channel.NewManager(cfg.Endpoints.ChatURL, channel.Options{
		DialTimeout: cfg.Channel.DialTimeout.Duration(),
		SessionID:   sessionID,
		Logger:      log,
	})
	cache := tasks.NewCache(newTaskClient(cfg), policy)
	log.Debug("session created",
		"session_id", sessionID,
		"chat_url", cfg.Endpoints.ChatURL,
		"api_url", cfg.Endpoints.APIURL,
		"refresh_policy", cache.Policy(),
	)

	return coordinator.New(ch, cache, coordinator.Options{
		Logger:      log,
		ReportError: telemetry.CaptureError,
	}), nil
}

// newTaskClient builds a client for the one-shot task commands.
func newTaskClient(cfg *config.Config) *tasks.Client {
	return tasks.NewClient(cfg.Endpoints.APIURL, nil, cfg.Sync.RequestTimeout.Duration())
}

package config

import (
	"os"
	"path/filepath"
)

// TaskpilotPath returns the root directory for taskpilot data.
// It uses $TASKPILOT_PATH if set, otherwise defaults to ~/.taskpilot.
func TaskpilotPath() string {
	if v := os.Getenv("TASKPILOT_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".taskpilot")
	}
	return filepath.Join(home, ".taskpilot")
}

// ConfigPath returns the path to the taskpilot config file.
func ConfigPath() string {
	return filepath.Join(TaskpilotPath(), "config.jsonc")
}

// DotenvPath returns the path to the taskpilot .env file.
func DotenvPath() string {
	return filepath.Join(TaskpilotPath(), ".env")
}

// HeartbeatPath returns the path of the file a running dev server keeps fresh.
func HeartbeatPath() string {
	return filepath.Join(TaskpilotPath(), "devserver.json")
}

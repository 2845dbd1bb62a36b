package config

import "time"

// Config is the root configuration for taskpilot.
type Config struct {
	Endpoints EndpointsConfig `json:"endpoints"`
	Sync      SyncConfig      `json:"sync"`
	Channel   ChannelConfig   `json:"channel"`
	Log       LogConfig       `json:"log"`
	Telemetry TelemetryConfig `json:"telemetry"`
	DevServer DevServerConfig `json:"devserver"`
}

// EndpointsConfig holds the two remote addresses. They are read once at startup.
type EndpointsConfig struct {
	ChatURL string `json:"chat_url"` // websocket endpoint of the agent
	APIURL  string `json:"api_url"`  // HTTP base URL of the task service
}

// SyncConfig tunes task list synchronisation.
type SyncConfig struct {
	RefreshPolicy  string   `json:"refresh_policy"` // "latest-request" | "latest-response"
	RequestTimeout Duration `json:"request_timeout,omitempty"`
	Poll           string   `json:"poll,omitempty"` // cron spec, e.g. "@every 30s"; empty disables polling
}

// ChannelConfig tunes the agent channel.
type ChannelConfig struct {
	DialTimeout Duration `json:"dial_timeout,omitempty"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level string `json:"level"`          // debug, info, warn, error
	File  string `json:"file,omitempty"` // used by the tui command (default: $TASKPILOT_PATH/taskpilot.log)
}

// TelemetryConfig configures optional error reporting.
type TelemetryConfig struct {
	SentryDSN string `json:"sentry_dsn,omitempty"` // Direct DSN or ${{ .Env.VAR }} template
}

// DevServerConfig configures the local stand-in service.
type DevServerConfig struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Store string `json:"store"`          // "memory" or a sqlite file path
	Seed  string `json:"seed,omitempty"` // optional YAML file with initial tasks
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

package config

// Config is the process-wide configuration, loaded once at startup.
//
// The webhook section is the wire contract with the external endpoint and is
// fixed for the process lifetime; only the logging section is re-applied on
// config reload (see ConfigManager.Watch and the app's update loop).
type Config struct {
	Webhook   WebhookConfig   `json:"webhook"`
	Logging   LoggingConfig   `json:"logging"`
	Heartbeat HeartbeatConfig `json:"heartbeat,omitempty"`
}

// WebhookConfig controls the offline-message notifier.
//
// Defaults (when fields are omitted/zero):
//   - auth_token: "secret"
//   - post_url: "http://localhost:5000/notify"
//   - confidential: false
//   - timeout: "10s"
//   - workers: 2
//   - queue_size: 256
//   - rate_per_sec: 0 (unlimited)
type WebhookConfig struct {
	AuthToken    string `json:"auth_token,omitempty"`
	PostURL      string `json:"post_url,omitempty"`
	Confidential bool   `json:"confidential,omitempty"`

	// Timeout is a Go duration string (e.g. "10s", "1m") bounding one POST.
	Timeout    string `json:"timeout,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	QueueSize  int    `json:"queue_size,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// HeartbeatConfig controls the periodic counters log line.
//
// Schedule is a cron spec (robfig/cron, "@every 1m" style descriptors
// included). Default: "@every 1m".
type HeartbeatConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

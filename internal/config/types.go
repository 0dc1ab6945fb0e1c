package config

// Config is the root configuration.
//
// Calendar policy (filter, calendar id, reminder channel, credentials
// location) is read at startup only. Logging and the maintainer set may be
// hot-reloaded via Watch().
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Calendar CalendarConfig `json:"calendar"`
	Commands CommandsConfig `json:"commands"`
	Storage  StorageConfig  `json:"storage"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	PollTimeout string `json:"poll_timeout"` // duration, default 10s

	// MaintainerUserIDs may run the calendar commands.
	MaintainerUserIDs []int64 `json:"maintainer_user_ids"`

	// GroupLog receives the Telegram log sink output (0 = disabled).
	GroupLog int64 `json:"group_log"`
}

type LoggingConfig struct {
	Level    string            `json:"level"`
	Console  bool              `json:"console"`
	File     FileLogConfig     `json:"file"`
	Telegram TelegramLogConfig `json:"telegram"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type TelegramLogConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type CalendarConfig struct {
	Enabled bool `json:"enabled"`

	// ID of the calendar used by the calendar commands. Note that ALL
	// calendars whose name starts with Filter are checked for incoming
	// events, not just this one.
	ID string `json:"id"`

	// Filter is the case-insensitive display-name prefix selecting which
	// calendars are polled.
	Filter string `json:"filter"`

	// Channel is the chat that receives reminder messages.
	Channel int64 `json:"channel"`

	// CredentialsDir holds credentials.json and token.json for the
	// calendar service. Missing credentials disable the whole feature.
	CredentialsDir string `json:"credentials_dir"`

	// Digest is an optional cron spec for a daily/weekly summary post
	// (empty = disabled).
	Digest string `json:"digest"`
}

type CommandsConfig struct {
	Enabled bool `json:"enabled"`
}

type StorageConfig struct {
	// Driver: "" or "none" disables persistence; "sqlite" enables the
	// fired-reminder marks store (survives restarts).
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"`
}

// Defaults fills zero values that have non-trivial defaults.
func (c *Config) Defaults() {
	if c.Calendar.Filter == "" {
		c.Calendar.Filter = "pandorum"
	}
	if c.Calendar.CredentialsDir == "" {
		c.Calendar.CredentialsDir = "./config/google"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
}

package config

// Config is the whole config file. It may be written as YAML or JSON;
// both are strict-decoded (unknown fields are rejected).
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	API       APIConfig       `json:"api"`
	Telegram  *TelegramConfig `json:"telegram,omitempty"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Dashboard DashboardConfig `json:"dashboard"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
}

// GatewayConfig points at the WhatsApp gateway sidecar.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type GatewayConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key,omitempty"`

	// PollTimeout bounds the long-poll on the gateway event stream.
	PollTimeout string `json:"poll_timeout,omitempty"`
	// CallTimeout bounds every other gateway call (send/logout/restart).
	CallTimeout string `json:"call_timeout,omitempty"`
}

// APIConfig points at the reminder API that is polled on schedule.
type APIConfig struct {
	Endpoint  string `json:"endpoint"`
	CronToken string `json:"cron_token"`
	Timeout   string `json:"timeout,omitempty"`
}

// TelegramConfig configures the optional Telegram ops-alert channel
// (WARN+ log lines are mirrored there, see logging.telegram).
type TelegramConfig struct {
	Token     string `json:"token"`
	OpsChatID int64  `json:"ops_chat_id"`
}

type LoggingConfig struct {
	Level    string            `json:"level"`
	Console  bool              `json:"console"`
	File     LogFileConfig     `json:"file"`
	Telegram LogTelegramConfig `json:"telegram"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LogTelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// SchedulerConfig declares the daily wall-clock trigger times.
//
// Times are "HH:MM" (24h) in the configured timezone; every entry fires
// once per day.
type SchedulerConfig struct {
	Enabled  bool     `json:"enabled"`
	Timezone string   `json:"timezone,omitempty"`
	Times    []string `json:"times"`
}

// DispatchConfig controls the send loop.
//
// SendDelay is the anti-flood pause after every send (default "2s").
// SendTimeout bounds a single transport send (default "30s").
type DispatchConfig struct {
	SendDelay   string `json:"send_delay,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
}

type DashboardConfig struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr,omitempty"`
	CORSOrigin string `json:"cors_origin,omitempty"`
}

// StorageConfig controls the optional SQLite send-history store.
type StorageConfig struct {
	Enabled     bool   `json:"enabled"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

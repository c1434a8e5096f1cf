package app

import (
	"fmt"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/dashboard"
	"remindbot/internal/dispatch"
	"remindbot/internal/reminder"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/internal/transport/wagateway"
	logx "remindbot/pkg/logx"
)

// validate rejects a config before it is committed. It is also the watcher's
// validation hook, so a bad edit keeps the previous config running.
func validate(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("empty config")
	}
	if strings.TrimSpace(cfg.Gateway.BaseURL) == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if strings.TrimSpace(cfg.API.Endpoint) == "" {
		return fmt.Errorf("api.endpoint is required")
	}

	durations := []struct{ path, raw string }{
		{"gateway.poll_timeout", cfg.Gateway.PollTimeout},
		{"gateway.call_timeout", cfg.Gateway.CallTimeout},
		{"api.timeout", cfg.API.Timeout},
		{"dispatch.send_delay", cfg.Dispatch.SendDelay},
		{"dispatch.send_timeout", cfg.Dispatch.SendTimeout},
	}
	if cfg.Storage != nil {
		durations = append(durations, struct{ path, raw string }{"storage.busy_timeout", cfg.Storage.BusyTimeout})
	}
	for _, d := range durations {
		if _, err := config.ParseDurationOrDefault(d.path, d.raw, 0); err != nil {
			return err
		}
	}

	if cfg.Scheduler.Enabled && len(cfg.Scheduler.Times) == 0 {
		return fmt.Errorf("scheduler.times must not be empty when the scheduler is enabled")
	}
	for _, t := range cfg.Scheduler.Times {
		if _, _, err := scheduler.ParseClock(t); err != nil {
			return fmt.Errorf("scheduler.times: %w", err)
		}
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}

	if cfg.Telegram != nil {
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("telegram.token is required when the telegram section is present")
		}
		if cfg.Telegram.OpsChatID == 0 {
			return fmt.Errorf("telegram.ops_chat_id is required when the telegram section is present")
		}
	}
	if cfg.Storage != nil && cfg.Storage.Enabled && strings.TrimSpace(cfg.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required when storage is enabled")
	}
	return nil
}

// The mapping helpers below assume validate() already ran, so duration parse
// errors are ignored in favor of the documented defaults.

func dur(raw string, def time.Duration) time.Duration {
	d, err := config.ParseDurationOrDefault("", raw, def)
	if err != nil {
		return def
	}
	return d
}

func logConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}

func gatewayConfig(c config.GatewayConfig) wagateway.Config {
	return wagateway.Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		PollTimeout: dur(c.PollTimeout, 0),
		CallTimeout: dur(c.CallTimeout, 0),
	}
}

func sourceConfig(c config.APIConfig) reminder.SourceConfig {
	return reminder.SourceConfig{
		Endpoint:  c.Endpoint,
		CronToken: c.CronToken,
		Timeout:   dur(c.Timeout, 0),
	}
}

func dispatchConfig(c config.DispatchConfig) dispatch.Config {
	return dispatch.Config{
		SendDelay:   dur(c.SendDelay, 0),
		SendTimeout: dur(c.SendTimeout, 0),
		HistorySize: c.HistorySize,
	}
}

func schedulerConfig(c config.SchedulerConfig) scheduler.Config {
	return scheduler.Config{Enabled: c.Enabled, Timezone: c.Timezone, Times: c.Times}
}

func dashboardConfig(c config.DashboardConfig) dashboard.Config {
	return dashboard.Config{Enabled: c.Enabled, Addr: c.Addr, CORSOrigin: c.CORSOrigin}
}

func storageConfig(c *config.StorageConfig) storage.Config {
	if c == nil {
		return storage.Config{}
	}
	return storage.Config{
		Enabled:     c.Enabled,
		Path:        c.Path,
		BusyTimeout: dur(c.BusyTimeout, 0),
	}
}

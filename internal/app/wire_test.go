package app

import (
	"testing"
	"time"

	"remindbot/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Gateway:   config.GatewayConfig{BaseURL: "http://127.0.0.1:8700"},
		API:       config.APIConfig{Endpoint: "https://example.test/api", CronToken: "x"},
		Scheduler: config.SchedulerConfig{Enabled: true, Timezone: "Asia/Jakarta", Times: []string{"10:50", "13:00"}},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	t.Parallel()
	if err := validate(validConfig()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "missing gateway url", mutate: func(c *config.Config) { c.Gateway.BaseURL = "" }},
		{name: "missing api endpoint", mutate: func(c *config.Config) { c.API.Endpoint = "" }},
		{name: "bad duration", mutate: func(c *config.Config) { c.Dispatch.SendDelay = "two seconds" }},
		{name: "bad trigger time", mutate: func(c *config.Config) { c.Scheduler.Times = []string{"25:00"} }},
		{name: "bad timezone", mutate: func(c *config.Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{name: "enabled scheduler without times", mutate: func(c *config.Config) { c.Scheduler.Times = nil }},
		{name: "telegram without token", mutate: func(c *config.Config) {
			c.Telegram = &config.TelegramConfig{OpsChatID: 5}
		}},
		{name: "telegram without chat id", mutate: func(c *config.Config) {
			c.Telegram = &config.TelegramConfig{Token: "123:abc"}
		}},
		{name: "enabled storage without path", mutate: func(c *config.Config) {
			c.Storage = &config.StorageConfig{Enabled: true}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDispatchConfigMapping(t *testing.T) {
	t.Parallel()
	got := dispatchConfig(config.DispatchConfig{SendDelay: "3s", HistorySize: 10})
	if got.SendDelay != 3*time.Second {
		t.Fatalf("SendDelay = %v", got.SendDelay)
	}
	if got.SendTimeout != 0 {
		t.Fatalf("SendTimeout = %v, want 0 (service default applies)", got.SendTimeout)
	}
	if got.HistorySize != 10 {
		t.Fatalf("HistorySize = %d", got.HistorySize)
	}
}

func TestStorageConfigNilSection(t *testing.T) {
	t.Parallel()
	got := storageConfig(nil)
	if got.Enabled {
		t.Fatal("absent storage section must map to disabled storage")
	}
}

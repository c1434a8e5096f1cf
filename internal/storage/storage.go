// Package storage persists per-send outcomes so the dashboard can backfill
// recent activity across restarts.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the SQLite store. When Enabled is false, Open returns
// (nil, nil) and callers treat the store as absent.
type Config struct {
	Enabled     bool
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// SendRecord is one delivery attempt. Keep it compact and schema-stable.
type SendRecord struct {
	At        time.Time `json:"at"`
	CycleID   string    `json:"cycle_id"`
	Category  string    `json:"category"`
	Recipient string    `json:"recipient"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	TookMS    int64     `json:"took_ms"`
}

// Store is the minimal persistence API used by the dispatcher and dashboard.
type Store interface {
	AppendSend(ctx context.Context, r SendRecord) error
	RecentSends(ctx context.Context, limit int) ([]SendRecord, error)
	Close() error
}

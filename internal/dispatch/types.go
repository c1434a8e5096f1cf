package dispatch

import (
	"context"
	"time"

	"remindbot/internal/reminder"
)

// Fetcher is the reminder API capability (see reminder.Source).
type Fetcher interface {
	Fetch(ctx context.Context) (reminder.Batch, error)
}

// Sender is the subset of the chat transport the dispatcher needs.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Config controls the send loop.
//
// SendDelay is the anti-flood pause enforced between sends; it applies after
// every attempt, successful or not. SendTimeout bounds one transport call so
// a hung send cannot wedge the cycle worker.
type Config struct {
	SendDelay   time.Duration
	SendTimeout time.Duration
	HistorySize int
}

// CycleSummary is a bounded in-memory record of one dispatch cycle,
// exposed to the dashboard.
type CycleSummary struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	DoneAt    time.Time `json:"done_at"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Aborted   bool      `json:"aborted"`
	Error     string    `json:"error,omitempty"`
}

// SendEvent is the bus payload for send.ok / send.failed events.
type SendEvent struct {
	CycleID   string `json:"cycle_id"`
	Category  string `json:"category"`
	Recipient string `json:"recipient"`
	Error     string `json:"error,omitempty"`
}

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "sends.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabledReturnsNil(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatal("disabled storage must yield a nil store")
	}
}

func TestAppendAndRecentSends(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	records := []SendRecord{
		{At: now.Add(-2 * time.Minute), CycleID: "cy:1", Category: "motor", Recipient: "62811@c.us", OK: true, TookMS: 120},
		{At: now.Add(-1 * time.Minute), CycleID: "cy:1", Category: "domain", Recipient: "62822@c.us", OK: false, Error: "transport down", TookMS: 80},
		{At: now, CycleID: "cy:2", Category: "reminder", Recipient: "62833@c.us", OK: true, TookMS: 95},
	}
	for _, r := range records {
		if err := st.AppendSend(ctx, r); err != nil {
			t.Fatalf("AppendSend: %v", err)
		}
	}

	got, err := st.RecentSends(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSends: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// Newest first.
	if got[0].CycleID != "cy:2" || got[0].Category != "reminder" {
		t.Fatalf("first record = %+v", got[0])
	}
	if got[1].OK || got[1].Error != "transport down" {
		t.Fatalf("second record = %+v", got[1])
	}
}

func TestRecentSendsDefaultLimit(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	if err := st.AppendSend(context.Background(), SendRecord{CycleID: "cy:1", Category: "bts", Recipient: "62811@c.us", OK: true}); err != nil {
		t.Fatalf("AppendSend: %v", err)
	}
	got, err := st.RecentSends(context.Background(), 0)
	if err != nil {
		t.Fatalf("RecentSends: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].At.IsZero() {
		t.Fatal("timestamp not round-tripped")
	}
}

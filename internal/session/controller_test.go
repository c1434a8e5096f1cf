package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type fakeClient struct {
	mu        sync.Mutex
	connected bool
	logoutErr error
	logouts   int
	restarts  int
}

func (f *fakeClient) Start(ctx context.Context, out chan<- transport.Event) error { return nil }
func (f *fakeClient) Stop(ctx context.Context) error                              { return nil }
func (f *fakeClient) Send(ctx context.Context, to, text string) error             { return nil }

func (f *fakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func (f *fakeClient) Restart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	f.connected = false
	return nil
}

func (f *fakeClient) counts() (logouts, restarts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts, f.restarts
}

type fakeSched struct {
	mu        sync.Mutex
	activated int
}

func (f *fakeSched) Activate() {
	f.mu.Lock()
	f.activated++
	f.mu.Unlock()
}

func (f *fakeSched) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activated
}

func waitForRestarts(t *testing.T, client *fakeClient, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, restarts := client.counts(); restarts == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, restarts := client.counts()
	t.Fatalf("restarts = %d, want %d", restarts, want)
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %q, want %q", c.State(), want)
}

func startController(t *testing.T, client transport.Client, sched Scheduler, bus eventbus.Bus) (*Controller, chan transport.Event) {
	t.Helper()
	c := New(client, sched, logx.Nop(), bus)
	events := make(chan transport.Event, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx, events)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, events
}

func TestLifecycleTransitions(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	sched := &fakeSched{}
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(32)
	defer unsub()

	c, events := startController(t, client, sched, bus)

	if c.State() != StateDisconnected {
		t.Fatalf("initial state = %q", c.State())
	}

	events <- transport.Event{Kind: transport.EventQR, QR: "qr-payload-1"}
	waitForState(t, c, StateWaitingForScan)

	events <- transport.Event{Kind: transport.EventAuthenticated}
	waitForState(t, c, StateAuthenticated)

	events <- transport.Event{Kind: transport.EventReady}
	waitForState(t, c, StateConnected)
	if sched.count() != 1 {
		t.Fatalf("scheduler activations = %d, want 1", sched.count())
	}

	// A reconnect fires ready again; activation stays idempotent upstream,
	// but the controller must still call it.
	events <- transport.Event{Kind: transport.EventReady}
	waitForState(t, c, StateConnected)

	// Every QR event reaches the dashboard, including repeats.
	sawQR := 0
	timeout := time.After(2 * time.Second)
	for sawQR < 1 {
		select {
		case e := <-ch:
			if e.Type == eventbus.TypeQRCode {
				if e.Data != "qr-payload-1" {
					t.Fatalf("qr payload = %v", e.Data)
				}
				sawQR++
			}
		case <-timeout:
			t.Fatal("no qr_code event observed")
		}
	}
}

func TestDisconnectedTriggersRestart(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true}
	c, events := startController(t, client, &fakeSched{}, nil)

	events <- transport.Event{Kind: transport.EventDisconnected, Reason: "NAVIGATION"}
	waitForState(t, c, StateDisconnected)
	waitForRestarts(t, client, 1)
}

func TestLogoutSequence(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true}
	c, _ := startController(t, client, &fakeSched{}, nil)

	c.Logout()
	waitForState(t, c, StateLoggingOut)
	waitForRestarts(t, client, 1)
	waitForState(t, c, StateDisconnected)

	logouts, _ := client.counts()
	if logouts != 1 {
		t.Fatalf("logouts = %d, want 1", logouts)
	}
}

func TestLogoutFailureStillReinitializes(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true, logoutErr: errors.New("gateway refused")}
	bus := eventbus.New()
	snapshotCh, unsub := bus.Subscribe(32)
	defer unsub()

	c, _ := startController(t, client, &fakeSched{}, bus)

	c.Logout()
	waitForRestarts(t, client, 1)
	waitForState(t, c, StateDisconnected)

	sawFailureLine := false
	for {
		select {
		case e := <-snapshotCh:
			if e.Type == eventbus.TypeLog && e.Data == "Logout WhatsApp gagal" {
				sawFailureLine = true
			}
			continue
		default:
		}
		break
	}
	if !sawFailureLine {
		t.Fatal("expected failure log line on the status channel")
	}
}

func TestLogoutWhenNotConnectedSkipsLogoutCall(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: false}
	c, _ := startController(t, client, &fakeSched{}, nil)

	c.Logout()
	waitForRestarts(t, client, 1)
	waitForState(t, c, StateDisconnected)

	logouts, _ := client.counts()
	if logouts != 0 {
		t.Fatalf("logouts = %d, want 0 when no session is established", logouts)
	}
}

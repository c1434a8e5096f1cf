// Package session owns the chat-transport session lifecycle: it is the only
// writer of the session state, translates transport lifecycle events into
// state transitions, and runs the explicit logout / re-authentication
// sequence requested from the dashboard.
package session

import (
	"context"
	"sync"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

// State is the current transport session state. The string values are the
// exact labels the dashboard displays.
type State string

const (
	StateDisconnected   State = "Disconnected"
	StateWaitingForScan State = "Waiting for Scan"
	StateAuthenticated  State = "Authenticated"
	StateConnected      State = "Connected"
	StateLoggingOut     State = "Logging Out"
)

// settleDelay is the pause between tearing the transport down during logout
// and bringing a fresh client up (gives the gateway time to drop the session).
const settleDelay = 2 * time.Second

// Scheduler is the dispatcher-trigger activation hook; called on every
// transport ready event and required to be idempotent.
type Scheduler interface {
	Activate()
}

type Controller struct {
	client transport.Client
	sched  Scheduler
	log    logx.Logger
	bus    eventbus.Bus

	logoutCh chan struct{}

	mu    sync.Mutex
	state State
}

func New(client transport.Client, sched Scheduler, log logx.Logger, bus eventbus.Bus) *Controller {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Controller{
		client:   client,
		sched:    sched,
		log:      log,
		bus:      bus,
		logoutCh: make(chan struct{}, 1),
		state:    StateDisconnected,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Logout requests the re-authentication sequence. Safe to call from any
// goroutine; a request while one is already pending is dropped.
func (c *Controller) Logout() {
	select {
	case c.logoutCh <- struct{}{}:
	default:
		c.log.Warn("logout already pending; dropping request")
	}
}

// Run consumes transport lifecycle events and logout commands until ctx is
// done. It is the single writer of the session state.
func (c *Controller) Run(ctx context.Context, events <-chan transport.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handleEvent(ctx, ev)
		case <-c.logoutCh:
			c.runLogout(ctx)
		}
	}
}

func (c *Controller) handleEvent(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventQR:
		c.log.Info("new QR received; forwarding to dashboard")
		c.setState(StateWaitingForScan)
		c.publish(eventbus.TypeQRCode, ev.QR)

	case transport.EventAuthenticated:
		c.log.Info("transport authenticated")
		c.setState(StateAuthenticated)

	case transport.EventReady:
		c.log.Info("transport ready")
		c.setState(StateConnected)
		// Idempotent: ready may fire again after reconnects without
		// duplicating trigger registrations.
		c.sched.Activate()

	case transport.EventDisconnected:
		c.log.Warn("transport disconnected", logx.String("reason", ev.Reason))
		c.setState(StateDisconnected)
		if err := c.client.Restart(ctx); err != nil {
			c.log.Error("transport restart failed", logx.Err(err))
		}
	}
}

// runLogout executes the explicit credential-invalidation sequence:
// broadcast LoggingOut, log the session out (when one is established), then
// after a settle delay bring up a fresh client so a new QR is produced.
//
// A failing logout call does not abort the sequence: the restart still runs,
// because the operator's goal is a fresh QR, not a clean goodbye. Every
// error is logged and leaves the controller able to retry.
func (c *Controller) runLogout(ctx context.Context) {
	c.log.Info("logout requested from dashboard")
	c.setState(StateLoggingOut)

	if c.client.Connected() {
		if err := c.client.Logout(ctx); err != nil {
			c.log.Error("transport logout failed; will still re-initialize", logx.Err(err))
			c.publish(eventbus.TypeLog, "Logout WhatsApp gagal")
		}
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	if err := c.client.Restart(ctx); err != nil {
		c.log.Error("transport re-initialize failed", logx.Err(err))
		c.publish(eventbus.TypeLog, "Logout WhatsApp gagal")
	} else {
		c.log.Info("logout complete; fresh QR pending")
	}
	c.setState(StateDisconnected)
}

func (c *Controller) setState(st State) {
	c.mu.Lock()
	prev := c.state
	c.state = st
	c.mu.Unlock()
	if prev != st {
		c.log.Debug("session state changed", logx.String("from", string(prev)), logx.String("to", string(st)))
	}
	c.publish(eventbus.TypeStatus, string(st))
}

func (c *Controller) publish(typ string, data any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// Package wagateway implements transport.Client against a WhatsApp gateway
// sidecar. The sidecar owns the actual WhatsApp session (credentials, QR
// handshake) and exposes a small REST surface:
//
//	POST /send            {"to": "...", "body": "..."}
//	POST /session/logout
//	POST /session/restart
//	GET  /events?wait=30s long-poll, returns a JSON array of lifecycle events
//	GET  /status          {"connected": true|false}
package wagateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	rtsup "remindbot/internal/runtime/supervisor"
	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	BaseURL string
	APIKey  string

	// PollTimeout bounds one long-poll on /events.
	PollTimeout time.Duration
	// CallTimeout bounds send/logout/restart/status calls.
	CallTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger

	http *http.Client
	base *url.URL

	runMu   sync.Mutex
	running bool
	out     atomic.Value // stores (chan<- transport.Event)

	// sup owns the event poll loop; created on Start(), cancelled on Stop().
	sup *rtsup.Supervisor

	connected atomic.Bool
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway base_url is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("gateway base_url: %w", err)
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{
		cfg:  cfg,
		log:  log,
		base: u,
		// No client-level timeout: the poll request is long-lived and bounded
		// per call via context.
		http: &http.Client{},
	}, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "wagateway"))),
		// adapter errors must not take down the whole app; the poll loop self-heals.
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.GoRestart("events.poll", a.pollLoop)
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	a.running = false
	var nilOut chan<- transport.Event
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if sup == nil {
		return nil
	}
	sup.Cancel()
	return sup.Wait(ctx)
}

func (a *Adapter) Connected() bool { return a.connected.Load() }

func (a *Adapter) Send(ctx context.Context, to, text string) error {
	body := map[string]string{"to": to, "body": text}
	return a.post(ctx, "/send", body)
}

func (a *Adapter) Logout(ctx context.Context) error {
	return a.post(ctx, "/session/logout", nil)
}

func (a *Adapter) Restart(ctx context.Context) error {
	// The gateway drops the session; connectivity is re-established through
	// lifecycle events (qr/authenticated/ready) on the poll loop.
	a.connected.Store(false)
	return a.post(ctx, "/session/restart", nil)
}

// ---- gateway HTTP plumbing ----

type gatewayEvent struct {
	Kind   string `json:"kind"`
	QR     string `json:"qr,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (a *Adapter) post(ctx context.Context, path string, payload any) error {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base.String()+path, rd)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	a.auth(req)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (a *Adapter) auth(req *http.Request) {
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
}

// pollLoop long-polls /events and forwards lifecycle events to the consumer.
// It runs under the adapter supervisor with restart-on-error.
func (a *Adapter) pollLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		events, err := a.pollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err // supervisor restarts with backoff
		}
		for _, ge := range events {
			ev, ok := mapEvent(ge)
			if !ok {
				a.log.Debug("unknown gateway event", logx.String("kind", ge.Kind))
				continue
			}
			switch ev.Kind {
			case transport.EventReady:
				a.connected.Store(true)
			case transport.EventDisconnected:
				a.connected.Store(false)
			}
			a.emit(ev)
		}
	}
}

func (a *Adapter) pollOnce(ctx context.Context) ([]gatewayEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.PollTimeout+5*time.Second)
	defer cancel()

	u := fmt.Sprintf("%s/events?wait=%s", a.base.String(), a.cfg.PollTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	a.auth(req)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway /events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway /events: status %d", resp.StatusCode)
	}

	var events []gatewayEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("gateway /events: decode: %w", err)
	}
	return events, nil
}

func mapEvent(ge gatewayEvent) (transport.Event, bool) {
	switch strings.ToLower(strings.TrimSpace(ge.Kind)) {
	case "qr":
		return transport.Event{Kind: transport.EventQR, QR: ge.QR}, true
	case "authenticated":
		return transport.Event{Kind: transport.EventAuthenticated}, true
	case "ready":
		return transport.Event{Kind: transport.EventReady}, true
	case "disconnected":
		return transport.Event{Kind: transport.EventDisconnected, Reason: ge.Reason}, true
	}
	return transport.Event{}, false
}

func (a *Adapter) emit(ev transport.Event) {
	v := a.out.Load()
	out, _ := v.(chan<- transport.Event)
	if out == nil {
		return
	}
	select {
	case out <- ev:
	default:
		// Lifecycle events are low-volume; a full channel means the consumer
		// is gone or wedged. Drop rather than block the poll loop.
		a.log.Warn("lifecycle event dropped (channel full)", logx.String("kind", string(ev.Kind)))
	}
}

// Package app assembles the relay: config, logging, transport, dispatcher,
// scheduler, session controller and dashboard, with hot-reload plumbing.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	alerttg "remindbot/internal/alert/telegram"
	"remindbot/internal/config"
	"remindbot/internal/dashboard"
	"remindbot/internal/dispatch"
	"remindbot/internal/eventbus"
	"remindbot/internal/reminder"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/scheduler"
	"remindbot/internal/session"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	"remindbot/internal/transport/wagateway"
	logx "remindbot/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager

	logSvc *logx.Service
	log    logx.Logger
	bus    eventbus.Bus

	store  storage.Store
	client *wagateway.Adapter
	disp   *dispatch.Service
	sched  *scheduler.Service
	sess   *session.Controller
	dash   *dashboard.Server

	sup    *supervisor.Supervisor
	events chan transport.Event
}

// New loads the config file, builds every component and wires them together.
// Nothing is started yet; call Start.
func New(configPath string) (*App, error) {
	mgr := config.NewManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	mgr.SetValidator(func(_ context.Context, c *config.Config) error { return validate(c) })

	var alerter logx.AlertSender
	if cfg.Telegram != nil && cfg.Telegram.Token != "" {
		s, err := alerttg.New(alerttg.Config{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.OpsChatID})
		if err != nil {
			return nil, err
		}
		alerter = s
	}

	logSvc, log := logx.New(logConfig(cfg.Logging), alerter)
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	store, err := storage.Open(storageConfig(cfg.Storage), log.With(logx.String("comp", "storage")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	client, err := wagateway.New(gatewayConfig(cfg.Gateway), log.With(logx.String("comp", "gateway")))
	if err != nil {
		if store != nil {
			store.Close()
		}
		logSvc.Close()
		return nil, err
	}

	source := reminder.NewSource(sourceConfig(cfg.API))
	disp := dispatch.New(dispatchConfig(cfg.Dispatch), source, client, log.With(logx.String("comp", "dispatch")), bus, store)
	sched := scheduler.New(schedulerConfig(cfg.Scheduler), disp, log.With(logx.String("comp", "scheduler")))
	sess := session.New(client, sched, log.With(logx.String("comp", "session")), bus)
	dash := dashboard.New(dashboardConfig(cfg.Dashboard), sess, disp, store, log.With(logx.String("comp", "dashboard")), bus)

	return &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		bus:    bus,
		store:  store,
		client: client,
		disp:   disp,
		sched:  sched,
		sess:   sess,
		dash:   dash,
		events: make(chan transport.Event, 16),
	}, nil
}

func (a *App) Logger() logx.Logger { return a.log }

// Start brings the relay up. The scheduler stays dormant until the transport
// reports ready; the session controller activates it then.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))
	runCtx := a.sup.Context()

	if err := a.client.Start(runCtx, a.events); err != nil {
		return fmt.Errorf("start gateway transport: %w", err)
	}

	a.sup.Go("session", func(ctx context.Context) error {
		return a.sess.Run(ctx, a.events)
	})

	a.disp.Start(runCtx)

	if a.dash.Enabled() {
		a.dash.Start(runCtx)
	}

	a.sup.Go("config-watch", a.cfgMgr.Watch)
	a.sup.Go0("config-reload", a.reloadLoop)

	a.log.Info("remindbot started")
	return nil
}

// Stop shuts everything down, newest consumers first, each step bounded by ctx.
func (a *App) Stop(ctx context.Context) {
	step := func(name string, fn func(context.Context) error) {
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := fn(sctx); err != nil {
			a.log.Warn("shutdown step failed", logx.String("step", name), logx.Err(err))
		}
	}

	if a.dash.Enabled() {
		step("dashboard", a.dash.Stop)
	}
	step("scheduler", func(ctx context.Context) error { a.sched.Deactivate(ctx); return nil })
	step("dispatch", func(ctx context.Context) error { a.disp.Stop(ctx); return nil })
	step("gateway", a.client.Stop)

	if a.sup != nil {
		a.sup.Cancel()
		step("supervisor", a.sup.Wait)
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing send history failed", logx.Err(err))
		}
	}

	a.log.Info("remindbot stopped")
	a.logSvc.Close()
}

// reloadLoop applies config changes published by the file watcher.
// Logging, scheduler and dispatch settings take effect live; the rest needs
// a process restart and is only reported.
func (a *App) reloadLoop(ctx context.Context) {
	updates := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(updates)

	prev := a.cfgMgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			if cfg == nil {
				continue
			}
			a.logSvc.Apply(logConfig(cfg.Logging))
			a.sched.Apply(schedulerConfig(cfg.Scheduler))
			a.disp.Apply(dispatchConfig(cfg.Dispatch))

			for _, section := range restartRequired(prev, cfg) {
				a.log.Warn("config section changed; restart required to apply", logx.String("section", section))
			}
			prev = cfg
			a.log.Info("config reloaded")
		}
	}
}

func restartRequired(prev, next *config.Config) []string {
	if prev == nil {
		return nil
	}
	var out []string
	same := func(a, b any) bool {
		ab, _ := json.Marshal(a)
		bb, _ := json.Marshal(b)
		return string(ab) == string(bb)
	}
	if !same(prev.Gateway, next.Gateway) {
		out = append(out, "gateway")
	}
	if !same(prev.API, next.API) {
		out = append(out, "api")
	}
	if !same(prev.Telegram, next.Telegram) {
		out = append(out, "telegram")
	}
	if !same(prev.Dashboard, next.Dashboard) {
		out = append(out, "dashboard")
	}
	if !same(prev.Storage, next.Storage) {
		out = append(out, "storage")
	}
	return out
}

// Package scheduler fires the dispatcher at fixed wall-clock times, once per
// day per configured time, in a single configured timezone.
package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "remindbot/pkg/logx"
)

// DefaultTimezone applies when the config leaves the timezone empty.
const DefaultTimezone = "Asia/Jakarta"

type Config struct {
	Enabled  bool
	Timezone string
	Times    []string // "HH:MM", daily
}

// Triggerer receives trigger callbacks; the dispatcher implements it.
// Triggers are fire-and-forget; overlap control lives on the other side.
type Triggerer interface {
	Trigger(reason string)
}

type Service struct {
	log  logx.Logger
	trig Triggerer

	// All fields below are guarded by the cron instance lifecycle: they are
	// only touched from Activate/Deactivate/Apply, which serialize on mu.
	mu  chan struct{} // 1-slot semaphore; avoids holding a sync.Mutex across c.Stop()
	cfg Config
	c   *cron.Cron
	loc *time.Location
}

func New(cfg Config, trig Triggerer, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, trig: trig, cfg: cfg, mu: make(chan struct{}, 1)}
	s.mu <- struct{}{}
	return s
}

func (s *Service) lock()   { <-s.mu }
func (s *Service) unlock() { s.mu <- struct{}{} }

func (s *Service) Enabled() bool {
	s.lock()
	defer s.unlock()
	return s.cfg.Enabled
}

// Active reports whether cron triggering is currently running.
func (s *Service) Active() bool {
	s.lock()
	defer s.unlock()
	return s.c != nil
}

// Activate starts cron triggering. It is idempotent: the transport "ready"
// event can fire more than once per process lifetime and must not duplicate
// trigger entries.
func (s *Service) Activate() {
	s.lock()
	defer s.unlock()
	if s.c != nil || !s.cfg.Enabled {
		return
	}
	s.startLocked()
}

// Deactivate stops cron triggering; registered times resume on the next Activate.
func (s *Service) Deactivate(ctx context.Context) {
	s.lock()
	c := s.c
	s.c = nil
	s.unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("scheduler deactivated")
}

// Apply installs a new config. When triggering is active and the timezone or
// trigger times changed, the cron instance is restarted with the new set.
func (s *Service) Apply(cfg Config) {
	s.lock()
	defer s.unlock()

	changed := s.cfg.Timezone != cfg.Timezone || !equalTimes(s.cfg.Times, cfg.Times)
	wasActive := s.c != nil
	s.cfg = cfg

	if !wasActive {
		return
	}
	if !cfg.Enabled {
		c := s.c
		s.c = nil
		c.Stop()
		s.log.Info("scheduler disabled via config")
		return
	}
	if changed {
		c := s.c
		s.c = nil
		c.Stop()
		s.startLocked()
	}
}

func (s *Service) startLocked() {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to local", logx.String("tz", tz), logx.Err(err))
		loc = time.Local
	}
	s.loc = loc

	c := cron.New(cron.WithLocation(loc))
	registered := 0
	for _, raw := range s.cfg.Times {
		h, m, err := ParseClock(raw)
		if err != nil {
			s.log.Warn("skipping invalid trigger time", logx.String("time", raw), logx.Err(err))
			continue
		}
		spec := cronSpec(h, m)
		at := raw
		if _, err := c.AddFunc(spec, func() {
			s.log.Info("scheduled trigger fired", logx.String("at", at))
			s.trig.Trigger("schedule " + at)
		}); err != nil {
			s.log.Warn("failed to register trigger", logx.String("time", raw), logx.Err(err))
			continue
		}
		registered++
	}
	c.Start()
	s.c = c
	s.log.Info("scheduler activated", logx.String("tz", loc.String()), logx.Int("triggers", registered))
}

func equalTimes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package dispatch runs reminder cycles: fetch the batch, walk the fixed
// category order, and deliver one paced message per record.
//
// Cycles are serialized on a single worker: at most one runs at a time and
// at most one more may be queued (queue-one). Additional triggers while both
// slots are taken are dropped with a log line; the next scheduled trigger
// will pick the work up again.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"remindbot/internal/eventbus"
	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	logx "remindbot/pkg/logx"
)

type Service struct {
	mu  sync.Mutex
	cfg Config

	source Fetcher
	sender Sender
	log    logx.Logger
	bus    eventbus.Bus
	store  storage.Store

	limiter *rate.Limiter

	trigger chan string // queue-one: capacity 1
	stopCh  chan struct{}
	done    chan struct{}

	hmu     sync.Mutex
	history []CycleSummary
}

func New(cfg Config, source Fetcher, sender Sender, log logx.Logger, bus eventbus.Bus, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		source:  source,
		sender:  sender,
		log:     log,
		bus:     bus,
		store:   store,
		trigger: make(chan string, 1),
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.SendDelay <= 0 {
		cfg.SendDelay = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	s.cfg = cfg
	// Spacing limiter: the first send passes immediately, every following
	// send waits out the anti-flood delay.
	s.limiter = rate.NewLimiter(rate.Every(cfg.SendDelay), 1)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.worker(ctx, stopCh)
	}()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Trigger requests a dispatch cycle. Fire-and-forget: if a cycle is running
// and another is already queued, the request is dropped.
func (s *Service) Trigger(reason string) {
	select {
	case s.trigger <- reason:
		s.log.Debug("cycle queued", logx.String("reason", reason))
	default:
		s.log.Warn("cycle already queued; dropping trigger", logx.String("reason", reason))
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case reason := <-s.trigger:
			s.runCycle(ctx, reason)
		}
	}
}

func (s *Service) runCycle(ctx context.Context, reason string) {
	start := time.Now()
	id := fmt.Sprintf("cy:%d", start.UnixNano())
	sum := CycleSummary{ID: id, Reason: reason, StartedAt: start}

	s.publish(eventbus.TypeCycleStarted, sum)
	s.log.Info("dispatch cycle started", logx.String("cycle", id), logx.String("reason", reason))

	batch, err := s.source.Fetch(ctx)
	if err != nil {
		// Fetch-level failure aborts the whole cycle; the next scheduled
		// trigger retries. Exactly one abort event, zero sends.
		sum.Aborted = true
		sum.Error = err.Error()
		sum.DoneAt = time.Now()
		s.log.Error("dispatch cycle aborted", logx.String("cycle", id), logx.Err(err))
		s.publish(eventbus.TypeCycleAborted, sum)
		s.publish(eventbus.TypeLog, "Error: "+err.Error())
		s.remember(sum)
		return
	}

	for _, cat := range reminder.DispatchOrder {
		for _, rec := range batch.Records(cat) {
			select {
			case <-ctx.Done():
				sum.DoneAt = time.Now()
				s.remember(sum)
				return
			default:
			}

			to, ok := reminder.NormalizePhone(rec.Phone(cat))
			if !ok {
				sum.Skipped++
				continue
			}
			text, ferr := reminder.FormatMessage(cat, rec)
			if ferr != nil {
				// Unreachable for the closed category set; treat as item failure.
				sum.Failed++
				s.log.Error("message format failed", logx.String("cycle", id), logx.String("category", cat.Key()), logx.Err(ferr))
				continue
			}

			if err := s.pace(ctx); err != nil {
				sum.DoneAt = time.Now()
				s.remember(sum)
				return
			}
			if s.sendOne(ctx, id, cat, to, text) {
				sum.Sent++
			} else {
				sum.Failed++
			}
		}
	}

	sum.DoneAt = time.Now()
	fields := []logx.Field{
		logx.String("cycle", id),
		logx.Int("sent", sum.Sent),
		logx.Int("failed", sum.Failed),
		logx.Int("skipped", sum.Skipped),
		logx.Duration("dur", sum.DoneAt.Sub(start)),
	}
	if sum.Failed > 0 {
		s.log.Warn("dispatch cycle finished with failures", fields...)
	} else {
		s.log.Info("dispatch cycle finished", fields...)
	}
	s.publish(eventbus.TypeCycleFinished, sum)
	s.remember(sum)
}

func (s *Service) pace(ctx context.Context) error {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()
	return lim.Wait(ctx)
}

func (s *Service) sendOne(ctx context.Context, cycleID string, cat reminder.Category, to, text string) bool {
	s.mu.Lock()
	timeout := s.cfg.SendTimeout
	s.mu.Unlock()

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	err := s.sender.Send(callCtx, to, text)
	cancel()
	took := time.Since(start)

	phone := strings.TrimSuffix(to, reminder.RecipientSuffix)
	ev := SendEvent{CycleID: cycleID, Category: cat.Key(), Recipient: to}
	if err != nil {
		ev.Error = err.Error()
		s.log.Warn("send failed", logx.String("cycle", cycleID), logx.String("category", cat.Key()), logx.String("to", to), logx.Err(err))
		s.publish(eventbus.TypeSendFailed, ev)
		s.publish(eventbus.TypeLog, "Gagal kirim ke "+phone)
	} else {
		s.log.Info("message sent", logx.String("cycle", cycleID), logx.String("category", cat.Key()), logx.String("to", to), logx.Duration("took", took))
		s.publish(eventbus.TypeSendOK, ev)
		s.publish(eventbus.TypeLog, "Pesan terkirim ke "+phone)
	}

	if s.store != nil {
		rec := storage.SendRecord{
			At:        start,
			CycleID:   cycleID,
			Category:  cat.Key(),
			Recipient: to,
			OK:        err == nil,
			TookMS:    took.Milliseconds(),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if serr := s.store.AppendSend(ctx, rec); serr != nil {
			s.log.Debug("send history write failed", logx.Err(serr))
		}
	}
	return err == nil
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func (s *Service) remember(sum CycleSummary) {
	s.mu.Lock()
	max := s.cfg.HistorySize
	s.mu.Unlock()

	s.hmu.Lock()
	s.history = append(s.history, sum)
	if len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
	s.hmu.Unlock()
}

// History returns a copy of the bounded cycle history (newest last).
func (s *Service) History() []CycleSummary {
	s.hmu.Lock()
	out := append([]CycleSummary(nil), s.history...)
	s.hmu.Unlock()
	return out
}

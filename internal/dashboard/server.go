// Package dashboard exposes the live-status channel: a WebSocket stream of
// status / log / qr_code events plus the inbound "logout-wa" command, and a
// small JSON endpoint with recent dispatch history.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"remindbot/internal/dispatch"
	"remindbot/internal/eventbus"
	"remindbot/internal/session"
	"remindbot/internal/storage"
	logx "remindbot/pkg/logx"
)

type Config struct {
	Enabled    bool
	Addr       string
	CORSOrigin string
}

// Sessions is the slice of the session controller the dashboard needs.
type Sessions interface {
	State() session.State
	Logout()
}

// Cycles exposes dispatch history for the /api/history endpoint.
type Cycles interface {
	History() []dispatch.CycleSummary
}

type Server struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	sessions Sessions
	cycles   Cycles
	store    storage.Store

	hub      *Hub
	upgrader websocket.Upgrader
	srv      *http.Server
}

func New(cfg Config, sessions Sessions, cycles Cycles, store storage.Store, log logx.Logger, bus eventbus.Bus) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		sessions: sessions,
		cycles:   cycles,
		store:    store,
		hub:      newHub(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Enabled() bool { return s.cfg.Enabled }

func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := strings.TrimSpace(s.cfg.CORSOrigin)
	if allowed == "" || allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || strings.EqualFold(origin, allowed)
}

// Start runs the hub, the bus-to-socket pump and the HTTP listener.
func (s *Server) Start(ctx context.Context) {
	go s.hub.run(ctx)
	go s.pump(ctx)

	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.log.Info("dashboard listening", logx.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("dashboard server failed", logx.Err(err))
		}
	}()
}

// pump forwards dashboard-relevant bus events to connected sockets.
func (s *Server) pump(ctx context.Context) {
	events, unsub := s.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case eventbus.TypeStatus, eventbus.TypeLog, eventbus.TypeQRCode:
				s.hub.Broadcast(Frame{Type: e.Type, At: e.Time, Data: e.Data})
			}
		}
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/history", s.handleHistory)
	return s.withCORS(mux)
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(s.cfg.CORSOrigin)
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("dashboard upgrade failed", logx.Err(err))
		return
	}
	s.log.Info("dashboard connected", logx.String("remote", r.RemoteAddr))

	c := &client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan Frame, 64),
		onLogout: s.sessions.Logout,
		log:      s.log,
	}
	s.hub.register <- c

	// Initial status push so a fresh dashboard shows the current state
	// without waiting for the next transition.
	c.send <- Frame{Type: eventbus.TypeStatus, At: time.Now(), Data: string(s.sessions.State())}

	go c.writePump()
	go c.readPump()
}

type historyResponse struct {
	Cycles []dispatch.CycleSummary `json:"cycles"`
	Sends  []storage.SendRecord    `json:"sends,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := historyResponse{Cycles: s.cycles.History()}
	if s.store != nil {
		if sends, err := s.store.RecentSends(r.Context(), 100); err == nil {
			resp.Sends = sends
		} else {
			s.log.Debug("send history read failed", logx.Err(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

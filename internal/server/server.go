// Package server streams a running episode to browsers over websocket and
// accepts restart requests.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/roadsim/internal/config"
	"github.com/zeusync/roadsim/internal/core/events/bus"
	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/episode"
	"github.com/zeusync/roadsim/pkg/generic"
)

const restartMessage = "restart"

var frames = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server owns the HTTP listener, the websocket hub and the pacing of one
// episode runner.
type Server struct {
	cfg    config.Server
	runner *episode.Runner
	logger log.Log
	hub    *hub
	subs   []bus.Subscription

	running  atomic.Bool
	restarts atomic.Uint64

	mu      sync.Mutex
	pending *time.Timer
}

// New subscribes the hub to the runner's events on b. Close releases the
// subscriptions.
func New(cfg config.Server, runner *episode.Runner, b bus.EventBus, logger log.Log) (*Server, error) {
	if runner == nil {
		return nil, ErrNoRunner
	}
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		runner: runner,
		logger: logger.Named("server"),
		hub:    newHub(),
	}

	feed, err := b.SubscribeTopic(episode.Topic, bus.AnyType, s.forward)
	if err != nil {
		return nil, err
	}
	s.subs = append(s.subs, feed)

	if cfg.AutoRestart > 0 {
		auto, err := b.SubscribeTopic(episode.Topic, episode.EventCollision, s.scheduleRestart)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.subs = append(s.subs, auto)
	}
	return s, nil
}

// Handler serves /ws, /restart, /snapshot and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/restart", s.serveRestart)
	mux.HandleFunc("/snapshot", s.serveSnapshot)
	mux.HandleFunc("/healthz", s.serveHealth)
	return mux
}

// Run listens on the configured address and paces the runner until ctx is
// done, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}
	defer s.running.Store(false)

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", log.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := s.runner.Pace(gctx, s.cfg.TickInterval.Std())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})

	err := g.Wait()
	s.logger.Info("stopped", log.Uint64("restarts", s.restarts.Load()))
	return err
}

// Close cancels the bus subscriptions and any pending automatic restart.
func (s *Server) Close() {
	for _, sub := range s.subs {
		_ = sub.Cancel()
	}
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.mu.Unlock()
}

// Clients reports the number of connected websocket viewers.
func (s *Server) Clients() int { return s.hub.count() }

func (s *Server) restart(source string) {
	s.restarts.Add(1)
	snap := s.runner.Reset()
	s.logger.Debug("restart requested", log.String("source", source), log.String("episode", snap.Episode))
}

func (s *Server) scheduleRestart(bus.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = time.AfterFunc(s.cfg.AutoRestart.Std(), func() { s.restart("auto") })
	return nil
}

func (s *Server) forward(e bus.Event) error {
	buf := frames.Get()
	defer frames.Put(buf)
	if err := json.NewEncoder(buf).Encode(e); err != nil {
		return err
	}
	// the hub keeps the frame after the buffer is reused
	s.hub.broadcast(bytes.Clone(bytes.TrimRight(buf.Bytes(), "\n")))
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	s.hub.add(client)
	s.logger.Debug("viewer connected", log.String("remote", conn.RemoteAddr().String()), log.Int("clients", s.hub.count()))

	go client.writeLoop()
	defer func() {
		s.hub.remove(client)
		_ = conn.Close()
		s.logger.Debug("viewer disconnected", log.String("remote", conn.RemoteAddr().String()))
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage && string(msg) == restartMessage {
			s.restart("websocket")
		}
	}
}

func (s *Server) serveRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.restart("http")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Snapshot())
}

type health struct {
	Status  string `json:"status"`
	Episode string `json:"episode"`
	Tick    uint64 `json:"tick"`
	Over    bool   `json:"over"`
	Clients int    `json:"clients"`
	Dropped uint64 `json:"dropped"`
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.runner.Snapshot()
	writeJSON(w, http.StatusOK, health{
		Status:  "ok",
		Episode: snap.Episode,
		Tick:    snap.Tick,
		Over:    snap.Over,
		Clients: s.hub.count(),
		Dropped: s.hub.droppedFrames(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package stream serves world snapshots to presentation clients over
// WebSocket and plain HTTP, and accepts operator commands.
//
//	GET  /ws        frames pushed at the frame interval; text messages are commands
//	GET  /snapshot  the latest frame
//	GET  /stats     the latest totals
//	POST /control   one command line in the body
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cxd309/traffic-sim/internal/engine"
)

const (
	DefaultFrameInterval = 50 * time.Millisecond

	writeWait       = 5 * time.Second
	maxCommandBytes = 4096
	shutdownGrace   = 5 * time.Second
)

// Source provides the frames to publish. *engine.World implements it.
type Source interface {
	Snapshot() engine.Snapshot
	Stats() engine.Stats
}

// Executor runs operator command lines. *control.Terminal implements it.
type Executor interface {
	Execute(line string) ([]string, error)
}

// Config configures a Server.
type Config struct {
	Addr          string
	FrameInterval time.Duration
	Logger        zerolog.Logger
}

// Frame is a snapshot message on the WebSocket.
type Frame struct {
	Type     string          `json:"type"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// ControlReply answers a command, on the WebSocket or from POST /control.
type ControlReply struct {
	Type  string   `json:"type,omitempty"`
	Lines []string `json:"lines"`
	Error string   `json:"error,omitempty"`
}

// Server is the HTTP front of a running simulation.
type Server struct {
	src      Source
	exec     Executor
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients atomic.Int64
}

// New returns a server publishing src. exec may be nil, in which case
// commands are refused.
func New(src Source, exec Executor, cfg Config) *Server {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	s := &Server{
		src:  src,
		exec: exec,
		cfg:  cfg,
		log:  cfg.Logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("POST /control", s.handleControl)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.mux }

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int64 { return s.clients.Load() }

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("stream server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("stream server stopped")
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Stats())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "reading command", http.StatusBadRequest)
		return
	}
	reply := s.execute(string(body))
	status := http.StatusOK
	if reply.Error != "" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, reply)
}

func (s *Server) execute(line string) ControlReply {
	line = strings.TrimSpace(line)
	if s.exec == nil {
		return ControlReply{Type: "control", Error: "commands are disabled"}
	}
	lines, err := s.exec.Execute(line)
	reply := ControlReply{Type: "control", Lines: lines}
	if err != nil {
		reply.Error = err.Error()
		s.log.Debug().Err(err).Str("command", line).Msg("command failed")
	} else {
		s.log.Info().Str("command", line).Msg("command executed")
	}
	return reply
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	defer conn.Close()
	s.clients.Add(1)
	defer s.clients.Add(-1)
	log := s.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("client connected")

	commands := make(chan string, 8)
	go func() {
		defer close(commands)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case commands <- string(payload):
			default:
				log.Warn().Msg("command dropped, client sending too fast")
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()
	var (
		sent     bool
		lastTick uint64
	)
	for {
		select {
		case line, ok := <-commands:
			if !ok {
				log.Info().Msg("client disconnected")
				return
			}
			if err := s.write(conn, s.execute(line)); err != nil {
				log.Debug().Err(err).Msg("writing reply")
				return
			}
		case <-ticker.C:
			snap := s.src.Snapshot()
			if sent && snap.Tick == lastTick {
				continue
			}
			if err := s.write(conn, Frame{Type: "frame", Snapshot: snap}); err != nil {
				log.Debug().Err(err).Msg("writing frame")
				return
			}
			sent, lastTick = true, snap.Tick
		}
	}
}

func (s *Server) write(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package server is the browser front end: it serves a canvas page,
// pushes every new trace over a websocket and takes the viewer's key
// commands back.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"oszifox-viewer/internal/acquire"
	"oszifox-viewer/internal/export"
	"oszifox-viewer/internal/waveform"
)

//go:embed static
var static embed.FS

const (
	writeWait    = 5 * time.Second
	sendBuffer   = 8
	shutdownWait = 2 * time.Second
)

// Message types pushed to websocket clients.
const (
	TypeTrace   = "trace"
	TypeWaiting = "waiting"
)

// Source yields the latest acquired frame.
type Source interface {
	Latest() (acquire.Snapshot, bool)
}

// Message is one websocket push. Trace is nil while waiting for the
// first frame.
type Message struct {
	Type  string             `json:"type"`
	View  waveform.ViewState `json:"view"`
	Trace *export.Trace      `json:"trace,omitempty"`
}

// Command is a key press sent by a client, one of the waveform.Cmd names.
type Command struct {
	Cmd string `json:"cmd"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server renders snapshots from a Source through a reconstructor.
type Server struct {
	src   Source
	view  *waveform.View
	recon *waveform.Reconstructor
	debug bool

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New returns a server. Call Notify for every new snapshot.
func New(src Source, view *waveform.View, recon *waveform.Reconstructor, debug bool) *Server {
	return &Server{
		src:      src,
		view:     view,
		recon:    recon,
		debug:    debug,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	mux.Handle("/", http.FileServer(http.FS(sub)))
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/trace", s.handleTrace)
	mux.HandleFunc("/api/view", s.handleView)
	return mux
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("server: online interface at http://%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	// Shutdown does not touch hijacked connections.
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("server: shutdown failed: %w", err)
	}
	return nil
}

// Notify pushes the current trace to every client. It never blocks; a
// client that has fallen behind misses the update.
func (s *Server) Notify(acquire.Snapshot) {
	s.broadcast()
}

func (s *Server) broadcast() {
	msg, err := json.Marshal(s.message())
	if err != nil {
		log.Printf("server: failed to encode message: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			if s.debug {
				log.Printf("server: client %s is slow, dropping update", c.conn.RemoteAddr())
			}
		}
	}
}

// message renders the latest snapshot with the current view cells.
func (s *Server) message() Message {
	vs := s.view.Snapshot()
	snap, ok := s.src.Latest()
	if !ok {
		return Message{Type: TypeWaiting, View: vs}
	}
	return Message{Type: TypeTrace, View: vs, Trace: s.trace(snap, vs)}
}

func (s *Server) trace(snap acquire.Snapshot, vs waveform.ViewState) *export.Trace {
	pts := s.recon.ReconstructFrame(snap.Frame, vs.Offset)
	t := export.NewTrace(snap, pts, waveform.TimeAxis(snap.Config.Timebase)).WithReconstructor(s.recon)
	t.View = vs
	return t
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	if s.debug {
		log.Printf("server: client %s connected", conn.RemoteAddr())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range c.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// The new client gets the current picture right away.
	if msg, err := json.Marshal(s.message()); err == nil {
		c.send <- msg
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		if !s.view.Apply(cmd.Cmd) {
			if s.debug {
				log.Printf("server: ignoring unknown command %q", cmd.Cmd)
			}
			continue
		}
		s.broadcast()
	}

	s.mu.Lock()
	delete(s.clients, c)
	close(c.send)
	s.mu.Unlock()
	<-done

	if s.debug {
		log.Printf("server: client %s disconnected", conn.RemoteAddr())
	}
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, ok := s.src.Latest()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(Message{Type: TypeWaiting, View: s.view.Snapshot()})
		return
	}
	if err := export.WriteJSON(w, s.trace(snap, s.view.Snapshot())); err != nil {
		log.Printf("server: %v", err)
	}
}

// handleView reports the view cells on GET and applies a command on POST.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var cmd Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, "invalid command: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !s.view.Apply(cmd.Cmd) {
			http.Error(w, fmt.Sprintf("unknown command %q", cmd.Cmd), http.StatusBadRequest)
			return
		}
		s.broadcast()
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.view.Snapshot())
}

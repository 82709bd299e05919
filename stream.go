package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/exec"
	"sync"

	"github.com/gorilla/websocket"
)

// Streamer pushes parsed tegrastats samples to websocket subscribers.
// tegrastats already streams continuously, so instead of one-shot sampling
// per message a single long-running child feeds every subscriber: the first
// subscriber starts it, the last one leaving stops it.
type Streamer struct {
	config   *Config
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*websocket.Conn]bool
	proc        *tegrastatsProc
}

func newStreamer(config *Config) *Streamer {
	return &Streamer{
		config:      config,
		subscribers: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (st *Streamer) Subscribe(conn *websocket.Conn) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.subscribers) == 0 {
		proc, err := startTegrastats(st.config.TegrastatsPath, st.config.Interval(), st.config.UsePTY)
		if err != nil {
			return err
		}
		st.proc = proc
		go st.run(proc)
	}

	st.subscribers[conn] = true
	return nil
}

func (st *Streamer) Unsubscribe(conn *websocket.Conn) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.subscribers, conn)
	if len(st.subscribers) == 0 && st.proc != nil {
		// stop unblocks the run goroutine's pending read.
		go st.proc.stop()
		st.proc = nil
	}
}

// run reads the child's output until it ends, broadcasting every line that
// parses into at least one metric. Unparsable lines are skipped, not pushed.
func (st *Streamer) run(proc *tegrastatsProc) {
	for {
		line, err := proc.readLine()
		if err != nil {
			proc.stop()
			return
		}

		stats := parseTegrastats(line)
		if stats.Empty() {
			continue
		}
		st.broadcast(stats)
	}
}

func (st *Streamer) broadcast(stats Stats) {
	st.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(st.subscribers))
	for conn := range st.subscribers {
		conns = append(conns, conn)
	}
	st.mu.Unlock()

	data, err := json.Marshal(stats)
	if err != nil {
		return
	}

	for _, conn := range conns {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}

// handleStream upgrades the request and subscribes the client to the live
// sample feed. The read loop exists only to notice the client going away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.streamer.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	if err := s.streamer.Subscribe(conn); err != nil {
		msg := map[string]string{"error": "Error running tegrastats", "details": err.Error()}
		if errors.Is(err, exec.ErrNotFound) {
			msg = map[string]string{"error": notFoundMessage}
		}
		conn.WriteJSON(msg)
		return
	}
	defer s.streamer.Unsubscribe(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"
)

const notFoundMessage = "'tegrastats' command not found. Are you running this on a Jetson device?"

type Server struct {
	config   *Config
	streamer *Streamer

	// sample is the one-shot sampler; a field so tests can stub it.
	sample func() (string, error)
}

func newServer(config *Config, streamer *Streamer) *Server {
	return &Server{
		config:   config,
		streamer: streamer,
		sample:   func() (string, error) { return sampleTegrastats(config) },
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/system-stats", s.handleSystemStats)
	mux.HandleFunc("/api/system-stats/ws", s.handleStream)
	mux.HandleFunc("/api/agent-info", s.handleAgentInfo)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return withMiddleware(mux)
}

// handleSystemStats runs tegrastats for a brief moment, captures a single
// line of output, parses it, and returns it as JSON.
func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	line, err := s.sample()
	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": notFoundMessage,
			})
		case errors.Is(err, errSpawn):
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Error running tegrastats",
				"details": err.Error(),
			})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "An unexpected error occurred",
				"details": err.Error(),
			})
		}
		return
	}

	stats := parseTegrastats(line)

	// Partial results are fine; only a fully empty parse is an error.
	if stats.Empty() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to parse tegrastats output",
			"raw":   line,
		})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAgentInfo(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()
	writeJSON(w, http.StatusOK, map[string]string{
		"hostname": hostname,
		"os":       runtime.GOOS + "/" + runtime.GOARCH,
		"version":  version,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error": "An unexpected error occurred",
				})
			}
		}()

		// Allow requests from any origin; the dashboard is served elsewhere.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

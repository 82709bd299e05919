package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	bindFlag := flag.String("bind", "", "Override bind address (e.g. 127.0.0.1 for local only)")
	portFlag := flag.Int("port", 0, "Override port")
	flag.Parse()

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		home, _ := os.UserHomeDir()
		cfgPath = filepath.Join(home, ".jetson-stats", "agent.yaml")
	}

	config, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Apply flag overrides
	if *bindFlag != "" {
		config.Bind = *bindFlag
	}
	if *portFlag != 0 {
		config.Port = *portFlag
	}

	// A missing utility is not fatal: the API reports it per request, so the
	// agent can be installed before drivers or started off-device for tests.
	if !tegrastatsAvailable(config.TegrastatsPath) {
		log.Printf("WARNING: %s not found in PATH; /api/system-stats will return errors", config.TegrastatsPath)
	}

	listenAddr := fmt.Sprintf("%s:%d", config.Bind, config.Port)

	streamer := newStreamer(config)
	srv := newServer(config, streamer)

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", listenAddr, err)
	}

	log.Printf("jetson-stats-agent %s listening on http://%s", version, listenAddr)
	log.Printf("Sampling via %s --interval %d", config.TegrastatsPath, config.IntervalMs)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		listener.Close()
		os.Exit(0)
	}()

	if err := http.Serve(listener, srv.Handler()); err != nil {
		log.Fatalf("HTTP serve: %v", err)
	}
}

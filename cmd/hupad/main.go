package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"

	"huparbiter/internal/app"
	"huparbiter/internal/config"
)

func main() {
	var (
		home       = flag.String("home", ".hup", "app home directory (state will be stored under <home>/app)")
		configPath = flag.String("config", "", "optional TOML config file (defaults apply when omitted)")
		addr       = flag.String("addr", "", "ABCI listen address (overrides config)")
		transport  = flag.String("transport", "", "ABCI transport (socket|grpc, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *transport != "" {
		cfg.Transport = *transport
	}

	a, err := app.New(*home, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg.ListenAddr, cfg.Transport, a)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "start abci server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "abci server start: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = srv.Stop() }()

	// Wait for signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

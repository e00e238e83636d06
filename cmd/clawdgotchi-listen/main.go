// Command clawdgotchi-listen is the reference receiver for clawdgotchi-hook.
// It binds the hook socket, prints each record it receives, and optionally
// relays records to WebSocket clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/clawdgotchi/hookbridge/internal/config"
	"github.com/clawdgotchi/hookbridge/internal/console"
	"github.com/clawdgotchi/hookbridge/internal/event"
	"github.com/clawdgotchi/hookbridge/internal/logging"
	"github.com/clawdgotchi/hookbridge/internal/relay"
	"github.com/clawdgotchi/hookbridge/internal/transport"
)

const (
	pruneInterval  = time.Minute
	pruneRetention = 10 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	socketPath := flag.String("socket", "", "Override socket path")
	relayAddr := flag.String("relay", "", "Serve the WebSocket relay on this address (e.g. 127.0.0.1:8787)")
	jsonOut := flag.Bool("json", false, "Print raw JSON lines instead of styled output")
	flag.Parse()

	cfg, err := config.Resolve(*configPath)
	if cfg.Log.Level == "warn" {
		cfg.Log.Level = "info"
	}
	logger, closeLog, logErr := logging.Open(cfg.Log.Level, cfg.Log.File)
	defer closeLog()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
	}
	if logErr != nil {
		logger.Warn("log file unavailable, logging to stderr", "error", logErr)
	}

	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if *relayAddr != "" {
		cfg.Listen.RelayAddr = *relayAddr
	}

	mode, err := cfg.SocketFileMode()
	if err != nil {
		logger.Error("invalid socket mode", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, mode, *jsonOut, logger); err != nil {
		logger.Error("listener failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, mode os.FileMode, jsonOut bool, logger *slog.Logger) error {
	store := relay.NewStore()
	broadcaster := relay.NewBroadcaster(store, cfg.Listen.MaxRelayClients, logger)
	defer broadcaster.Close()

	styled := !jsonOut && isatty.IsTerminal(os.Stdout.Fd())
	handle := func(rec event.Record) {
		if styled {
			fmt.Println(console.Format(rec))
		} else if line, err := rec.Encode(); err == nil {
			_, _ = os.Stdout.Write(line)
		}
		broadcaster.Publish(rec)
		logger.Debug("record received",
			"session_id", rec.SessionID,
			"status", rec.StatusName(),
			"active_sessions", store.ActiveCount(),
		)
	}

	l := transport.NewListener(cfg.SocketPath, mode, logger)
	if err := l.Listen(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.Shutdown(shutdownCtx); err != nil {
			logger.Warn("listener shutdown incomplete", "error", err)
		}
	}()
	logger.Info("listening for hook events", "socket", cfg.SocketPath, "mode", fmt.Sprintf("%#o", mode))

	go broadcaster.PruneLoop(ctx, pruneInterval, pruneRetention)

	if cfg.Listen.RelayAddr != "" {
		srv := relay.NewServer(store, broadcaster, logger)
		go func() {
			logger.Info("relay listening", "addr", cfg.Listen.RelayAddr)
			if err := relay.ListenAndServe(ctx, cfg.Listen.RelayAddr, srv.Handler()); err != nil {
				logger.Error("relay stopped", "error", err)
			}
		}()
	}

	err := l.Serve(ctx, handle)
	logger.Info("shutting down")
	return err
}

// Command clawdgotchi-hook is registered as a Claude Code hook. It reads the
// hook payload from stdin, forwards a state record to the local listener
// socket, and always exits 0 without writing to stdout.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/clawdgotchi/hookbridge/internal/bridge"
	"github.com/clawdgotchi/hookbridge/internal/caller"
	"github.com/clawdgotchi/hookbridge/internal/config"
	"github.com/clawdgotchi/hookbridge/internal/logging"
	"github.com/clawdgotchi/hookbridge/internal/transport"
)

func main() {
	defer func() {
		// Nothing may reach the host: no panic trace, no non-zero status.
		_ = recover()
		os.Exit(0)
	}()
	run(os.Args[1:], os.Stdin)
}

func run(args []string, stdin io.Reader) {
	fs := flag.NewFlagSet("clawdgotchi-hook", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "Path to config file")
	// Unknown flags are ignored so a misconfigured hook command still reports.
	_ = fs.Parse(args)

	cfg, cfgErr := config.Resolve(*configPath)

	logger, closeLog, logErr := logging.Open(cfg.Log.Level, cfg.Log.File)
	defer closeLog()
	if cfgErr != nil {
		logger.Warn("using fallback configuration", "error", cfgErr)
	}
	if logErr != nil {
		logger.Warn("log file unavailable, logging to stderr", "path", cfg.Log.File, "error", logErr)
	}

	// Bound the whole invocation in case a stage ignores its own timeout.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TTYTimeout+cfg.SendTimeout+time.Second)
	defer cancel()

	client := transport.NewClient(cfg.SocketPath, cfg.SendTimeout)
	out := bridge.Run(ctx, stdin, bridge.Options{
		Resolver: caller.NewResolver(cfg.TTYTimeout, logger),
		Sender:   client,
		Privacy:  cfg.Privacy.NewPrivacyFilter(),
		Logger:   logger,
	})
	logger.Debug("hook invocation finished",
		"delivery", out.Delivery.State,
		"socket", client.SocketPath(),
	)
}

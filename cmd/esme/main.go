// Command esme opens an SMPP connection, sends a series of enquire_link
// requests, waits for their responses and unbinds.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zereker/smpp/internal/config"
	"github.com/Zereker/smpp/internal/logging"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	var (
		path  string
		addr  string
		count int
	)
	flag.StringVar(&path, "config", "", "path to a YAML config file")
	flag.StringVar(&addr, "addr", "", "SMSC address, overrides the config file")
	flag.IntVar(&count, "count", -1, "number of enquire_link requests, overrides the config file")
	flag.Parse()

	cfg, err := config.LoadESME(path)
	if err != nil {
		return fail(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if count >= 0 {
		cfg.EnquireLinks = count
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(cfg, logging.Adapt(logger))
	if err := c.run(ctx); err != nil {
		logger.Sugar().Errorf("esme %s exits with error: %v", cfg.Addr, err)
		return 1
	}
	return 0
}

func fail(err error) int {
	_, _ = os.Stderr.WriteString("esme: " + err.Error() + "\n")
	return 1
}

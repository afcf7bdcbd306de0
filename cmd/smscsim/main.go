// Command smscsim is a small SMSC simulator. It answers enquire_link, bind,
// unbind and submit requests and rejects everything else with generic_nack.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zereker/smpp/internal/config"
	"github.com/Zereker/smpp/internal/logging"
)

func main() {
	var (
		path   string
		listen string
		delay  time.Duration
	)
	flag.StringVar(&path, "config", "", "path to a YAML config file")
	flag.StringVar(&listen, "listen", "", "listen address, overrides the config file")
	flag.DurationVar(&delay, "delay", -1, "response delay, overrides the config file")
	flag.Parse()

	cfg, err := config.LoadSimulator(path)
	if err != nil {
		fatal(err)
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if delay >= 0 {
		cfg.ResponseDelay = delay
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	sim, err := newSimulator(cfg, log)
	if err != nil {
		log.Fatalf("create simulator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sim.stop(shutdown); err != nil {
			log.Errorf("stop simulator: %v", err)
		}
	}()

	if err := sim.run(); err != nil {
		log.Errorf("simulator %s exits with error: %v", cfg.Listen, err)
	}
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("smscsim: " + err.Error() + "\n")
	os.Exit(1)
}

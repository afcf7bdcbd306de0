// Package config loads the YAML configuration of the smscsim and esme commands.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Zereker/smpp/internal/logging"
	"github.com/Zereker/smpp/pdu"
)

// Simulator configures the SMSC simulator.
type Simulator struct {
	Listen        string         `yaml:"listen"`
	Multicore     bool           `yaml:"multicore"`
	PoolSize      int            `yaml:"pool-size"`
	ResponseDelay time.Duration  `yaml:"response-delay"`
	SystemID      string         `yaml:"system-id"`
	MaxPDULength  uint32         `yaml:"max-pdu-length"`
	Log           logging.Config `yaml:"log"`
}

// ESME configures the command line client.
type ESME struct {
	Addr           string         `yaml:"addr"`
	ConnectTimeout time.Duration  `yaml:"connect-timeout"`
	BufferSize     int            `yaml:"buffer-size"`
	MaxPDULength   uint32         `yaml:"max-pdu-length"`
	EnquireLinks   int            `yaml:"enquire-links"`
	Interval       time.Duration  `yaml:"interval"`
	Log            logging.Config `yaml:"log"`
}

func DefaultSimulator() Simulator {
	return Simulator{
		Listen:       "127.0.0.1:2775",
		PoolSize:     1024,
		SystemID:     "smscsim",
		MaxPDULength: pdu.DefaultMaxLength,
		Log:          logging.DefaultConfig(),
	}
}

func DefaultESME() ESME {
	return ESME{
		Addr:           "127.0.0.1:2775",
		ConnectTimeout: 5 * time.Second,
		BufferSize:     16,
		MaxPDULength:   pdu.DefaultMaxLength,
		EnquireLinks:   3,
		Interval:       time.Second,
		Log:            logging.DefaultConfig(),
	}
}

// LoadSimulator reads path over the simulator defaults. An empty path returns the defaults.
func LoadSimulator(path string) (Simulator, error) {
	cfg := DefaultSimulator()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Listen == "" {
		return cfg, errors.New("config: listen address is empty")
	}
	if cfg.PoolSize <= 0 {
		return cfg, errors.Errorf("config: pool-size %d must be positive", cfg.PoolSize)
	}
	return cfg, nil
}

// LoadESME reads path over the client defaults. An empty path returns the defaults.
func LoadESME(path string) (ESME, error) {
	cfg := DefaultESME()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Addr == "" {
		return cfg, errors.New("config: addr is empty")
	}
	if cfg.EnquireLinks < 0 {
		return cfg, errors.Errorf("config: enquire-links %d is negative", cfg.EnquireLinks)
	}
	return cfg, nil
}

func load(path string, v any) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "config: parse %s", path)
	}
	return nil
}

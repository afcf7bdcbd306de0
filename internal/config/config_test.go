package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/smpp/pdu"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSimulator_Defaults(t *testing.T) {
	cfg, err := LoadSimulator("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulator(), cfg)
	assert.Equal(t, uint32(pdu.DefaultMaxLength), cfg.MaxPDULength)
}

func TestLoadSimulator_File(t *testing.T) {
	path := writeFile(t, `
listen: 0.0.0.0:2776
multicore: true
response-delay: 250ms
system-id: test
log:
  level: debug
  console: false
  file: /tmp/smscsim.log
`)

	cfg, err := LoadSimulator(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:2776", cfg.Listen)
	assert.True(t, cfg.Multicore)
	assert.Equal(t, 250*time.Millisecond, cfg.ResponseDelay)
	assert.Equal(t, "test", cfg.SystemID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Console)
	assert.Equal(t, "/tmp/smscsim.log", cfg.Log.File)

	// untouched keys keep their defaults
	assert.Equal(t, 1024, cfg.PoolSize)
	assert.Equal(t, 100, cfg.Log.MaxSize)
}

func TestLoadSimulator_Invalid(t *testing.T) {
	_, err := LoadSimulator(writeFile(t, "pool-size: 0\n"))
	assert.Error(t, err)

	_, err = LoadSimulator(writeFile(t, "listen: [unclosed\n"))
	assert.Error(t, err)

	_, err = LoadSimulator(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadESME_File(t *testing.T) {
	path := writeFile(t, `
addr: smsc.example.com:2775
connect-timeout: 2s
enquire-links: 10
interval: 100ms
`)

	cfg, err := LoadESME(path)
	require.NoError(t, err)

	assert.Equal(t, "smsc.example.com:2775", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10, cfg.EnquireLinks)
	assert.Equal(t, 100*time.Millisecond, cfg.Interval)
	assert.Equal(t, 16, cfg.BufferSize)
}

func TestLoadESME_Invalid(t *testing.T) {
	_, err := LoadESME(writeFile(t, "addr: \"\"\n"))
	assert.Error(t, err)

	_, err = LoadESME(writeFile(t, "enquire-links: -1\n"))
	assert.Error(t, err)
}

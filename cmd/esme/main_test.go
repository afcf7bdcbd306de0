package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ErrorIsLoggedBeforeExit(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	_ = l.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "esme.log")
	cfgPath := filepath.Join(dir, "esme.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
addr: `+addr+`
connect-timeout: 1s
log:
  level: info
  console: false
  file: `+logPath+`
`), 0o600))

	args := os.Args
	defer func() { os.Args = args }()
	os.Args = []string{"esme", "-config", cfgPath}

	assert.Equal(t, 1, run())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exits with error")
	assert.Contains(t, string(data), addr)
}

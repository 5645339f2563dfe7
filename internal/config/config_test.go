package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smppgw/bridge/internal/bridgeerr"
	"github.com/smppgw/bridge/internal/config"
)

const sampleYAML = `
smpp_peers:
  - id: p1
    ipaddress: 127.0.0.1
    port: 2775
    system_id: esme1
    password: secret
    default: true
smpp_server:
  bind_ip: 0.0.0.0
  port: 2776
  auth:
    - system_id: inbound1
      password: s3cret
http_server:
  bind_ip: 0.0.0.0
  port: 8080
  kamailio_url: http://127.0.0.1:9000/sms
logging:
  file_path: /var/log/bridge.log
  max_size: 20m
  max_files: 5
  console_enabled: true
  log_level: debug
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAndValidateSuccess(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:2775", cfg.SMPPPeers[0].Addr())
	assert.Equal(t, "0.0.0.0:2776", cfg.SMPPServer.Addr())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPServer.Addr())
	assert.True(t, cfg.SMPPPeers[0].Default)
}

func TestValidateRejectsEmptyPeers(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridgeerr.ErrConfigInvalid))
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	cfg := &config.Config{SMPPPeers: []config.PeerEntry{{ID: "p1"}, {ID: "p1"}}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridgeerr.ErrConfigInvalid))
}

func TestValidateRejectsMultipleDefaults(t *testing.T) {
	cfg := &config.Config{SMPPPeers: []config.PeerEntry{
		{ID: "p1", Default: true},
		{ID: "p2", Default: true},
	}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridgeerr.ErrConfigInvalid))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridgeerr.ErrConfigInvalid))
}

func TestPeerReconnectIntervalDefault(t *testing.T) {
	p := config.PeerEntry{}
	assert.Equal(t, 10*time.Second, p.ReconnectIntervalDuration())
}

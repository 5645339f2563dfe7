// Package config loads and validates the bridge's YAML configuration
// (spec.md §6).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smppgw/bridge/internal/bridgeerr"
)

// PeerEntry is one `smpp_peers` list entry.
type PeerEntry struct {
	ID                string `yaml:"id"`
	IPAddress         string `yaml:"ipaddress"`
	Port              int    `yaml:"port"`
	SystemID          string `yaml:"system_id"`
	Password          string `yaml:"password"`
	SystemType        string `yaml:"system_type"`
	SourceAddrTon     int    `yaml:"source_addr_ton"`
	SourceAddrNpi     int    `yaml:"source_addr_npi"`
	DestAddrTon       int    `yaml:"dest_addr_ton"`
	DestAddrNpi       int    `yaml:"dest_addr_npi"`
	ReconnectInterval int    `yaml:"reconnect_interval"` // milliseconds
	RouteRegex        string `yaml:"route_regex"`
	Default           bool   `yaml:"default"`
}

// Addr is host:port for this peer.
func (p PeerEntry) Addr() string {
	return fmt.Sprintf("%s:%d", p.IPAddress, p.Port)
}

// ReconnectIntervalDuration defaults to 10s, per spec.md §3 PeerConfig.
func (p PeerEntry) ReconnectIntervalDuration() time.Duration {
	if p.ReconnectInterval <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.ReconnectInterval) * time.Millisecond
}

// AuthEntry is one `smpp_server.auth` credential.
type AuthEntry struct {
	SystemID string `yaml:"system_id"`
	Password string `yaml:"password"`
}

// SMPPServer is the `smpp_server` section.
type SMPPServer struct {
	BindIP string      `yaml:"bind_ip"`
	Port   int         `yaml:"port"`
	Auth   []AuthEntry `yaml:"auth"`
}

// Addr is bind_ip:port for the inbound SMPP server, defaulting to port 2775.
func (s SMPPServer) Addr() string {
	port := s.Port
	if port == 0 {
		port = 2775
	}
	return fmt.Sprintf("%s:%d", s.BindIP, port)
}

// HTTPServer is the `http_server` section.
type HTTPServer struct {
	BindIP      string `yaml:"bind_ip"`
	Port        int    `yaml:"port"`
	KamailioURL string `yaml:"kamailio_url"`
}

// Addr is bind_ip:port for the HTTP ingress server.
func (h HTTPServer) Addr() string {
	return fmt.Sprintf("%s:%d", h.BindIP, h.Port)
}

// Logging is the `logging` section.
type Logging struct {
	FilePath       string `yaml:"file_path"`
	MaxSize        string `yaml:"max_size"`
	MaxFiles       int    `yaml:"max_files"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	LogLevel       string `yaml:"log_level"`
}

// Config is the top-level configuration document.
type Config struct {
	SMPPPeers  []PeerEntry `yaml:"smpp_peers"`
	SMPPServer SMPPServer  `yaml:"smpp_server"`
	HTTPServer HTTPServer  `yaml:"http_server"`
	Logging    Logging     `yaml:"logging"`
}

// Load reads and parses the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", bridgeerr.ErrConfigInvalid, path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", bridgeerr.ErrConfigInvalid, path, err)
	}
	return &cfg, nil
}

// Validate enforces spec.md §6/§7's CONFIG_INVALID rules: at least one
// peer, unique peer ids, at most one default peer.
func (c *Config) Validate() error {
	if len(c.SMPPPeers) == 0 {
		return fmt.Errorf("%w: smpp_peers must not be empty", bridgeerr.ErrConfigInvalid)
	}
	seen := make(map[string]bool, len(c.SMPPPeers))
	defaults := 0
	for _, p := range c.SMPPPeers {
		if p.ID == "" {
			return fmt.Errorf("%w: smpp_peers entry missing id", bridgeerr.ErrConfigInvalid)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate peer id %q", bridgeerr.ErrConfigInvalid, p.ID)
		}
		seen[p.ID] = true
		if p.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("%w: at most one smpp_peers entry may set default=true", bridgeerr.ErrConfigInvalid)
	}
	return nil
}

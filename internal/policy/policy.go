// Package policy loads panel configuration: the channel endpoint, timings,
// session storage and the control layout each subsystem view is built with.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jaakkos/helmpanel/internal/domain"
)

// GlobalStateDir returns the default state directory (~/.config/helmpanel).
func GlobalStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "helmpanel")
}

// GlobalSessionFile returns the default session database path.
func GlobalSessionFile() string {
	return filepath.Join(GlobalStateDir(), "session.sqlite")
}

// SubWorkerConfig declares a device or subordinate worker control.
type SubWorkerConfig struct {
	Name string `yaml:"name" toml:"name"`
	Kind string `yaml:"kind" toml:"kind"` // "device" (default) or "worker"
}

// WorkerConfig declares the controls of one worker.
type WorkerConfig struct {
	Name       string            `yaml:"name" toml:"name"`
	FirstMode  string            `yaml:"first_mode" toml:"first_mode"`
	Modes      []string          `yaml:"modes" toml:"modes"`
	SubWorkers []SubWorkerConfig `yaml:"subworkers" toml:"subworkers"`
	Actions    []string          `yaml:"actions" toml:"actions"`
}

// LayoutConfig is the view vocabulary: which workers, modes, sub-workers and
// actions the panel has controls for.
type LayoutConfig struct {
	Workers []WorkerConfig `yaml:"workers" toml:"workers"`
	Actions []string       `yaml:"actions" toml:"actions"` // panel-level, e.g. live-update
}

// Config holds panel configuration
type Config struct {
	Endpoint     string `yaml:"endpoint" toml:"endpoint"`
	Token        string `yaml:"token" toml:"token"`
	TopicContext string `yaml:"topic_context" toml:"topic_context"`
	Subsystem    string `yaml:"subsystem" toml:"subsystem"`
	ReplyTag     string `yaml:"reply_tag" toml:"reply_tag"`

	CommandTimeoutMs         int `yaml:"command_timeout_ms" toml:"command_timeout_ms"`
	LiveUpdateIntervalMs     int `yaml:"live_update_interval_ms" toml:"live_update_interval_ms"`
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds" toml:"heartbeat_interval_seconds"`

	SessionFile string `yaml:"session_file" toml:"session_file"`
	SessionID   string `yaml:"session_id" toml:"session_id"`
	LogFile     string `yaml:"log_file" toml:"log_file"`

	HTTPPort        int           `yaml:"http_port" toml:"http_port"`
	DebugBroadcasts bool          `yaml:"debug_broadcasts" toml:"debug_broadcasts"`
	Layout          *LayoutConfig `yaml:"layout" toml:"layout"`
}

// DefaultConfig returns defaults matching the reef subsystem view.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:                 "ws://localhost:4000/socket/websocket",
		TopicContext:             "ui",
		Subsystem:                "reef",
		CommandTimeoutMs:         10000,
		LiveUpdateIntervalMs:     5000,
		HeartbeatIntervalSeconds: 30,
		Layout:                   DefaultLayout(),
	}
}

// DefaultLayout returns the reef view: a captain driving the mix steps with
// its devices, and a first mate for cleanup.
func DefaultLayout() *LayoutConfig {
	return &LayoutConfig{
		Workers: []WorkerConfig{
			{
				Name:      "captain",
				FirstMode: "fill",
				Modes:     []string{"fill", "keep_fresh", "add_salt", "match_conditions", "dump_water", "final_check"},
				SubWorkers: []SubWorkerConfig{
					{Name: "water_pump", Kind: "device"},
					{Name: "mixtank_air", Kind: "device"},
					{Name: "rodi_valve", Kind: "device"},
					{Name: "heater", Kind: "device"},
					{Name: "first_mate", Kind: "worker"},
				},
				Actions: []string{"stop", "unlock-modes", "manual-control"},
			},
			{
				Name:      "first_mate",
				FirstMode: "clean",
				Modes:     []string{"clean", "water_change"},
				Actions:   []string{"stop"},
			},
		},
		Actions: []string{"live-update"},
	}
}

// LoadConfig loads configuration from a YAML or TOML file (by extension).
// Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Layout = nil
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Layout == nil {
		cfg.Layout = DefaultLayout()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports layout declarations the panel cannot build controls for.
func (c *Config) Validate() error {
	if c.Subsystem == "" {
		return fmt.Errorf("config: subsystem is required")
	}
	if c.Layout == nil {
		return nil
	}
	seen := make(map[string]bool)
	for i, w := range c.Layout.Workers {
		if w.Name == "" {
			return fmt.Errorf("config: layout.workers[%d]: name is required", i)
		}
		if w.Name == domain.PanelScope {
			return fmt.Errorf("config: layout.workers[%d]: %q is reserved", i, domain.PanelScope)
		}
		if seen[w.Name] {
			return fmt.Errorf("config: layout.workers[%d]: duplicate worker %q", i, w.Name)
		}
		seen[w.Name] = true
		if w.FirstMode != "" && !contains(w.Modes, w.FirstMode) {
			return fmt.Errorf("config: worker %s: first_mode %q is not one of its modes", w.Name, w.FirstMode)
		}
		for _, s := range w.SubWorkers {
			switch s.Kind {
			case "", string(domain.KindDevice), string(domain.KindSubWorker):
			default:
				return fmt.Errorf("config: worker %s: subworker %s: unknown kind %q", w.Name, s.Name, s.Kind)
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Policy exposes configuration through accessors that apply defaults.
type Policy struct {
	config *Config
	mu     sync.RWMutex // protects layout for hot reload
}

// New creates a policy over cfg. A missing session id is filled with a
// fresh one so each process is its own browsing session.
func New(cfg *Config) *Policy {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	return &Policy{config: cfg}
}

// Endpoint returns the websocket endpoint.
func (p *Policy) Endpoint() string {
	return p.config.Endpoint
}

// SocketParams returns the query params sent when connecting.
func (p *Policy) SocketParams() map[string]string {
	params := map[string]string{}
	if p.config.Token != "" {
		params["token"] = p.config.Token
	}
	return params
}

// Subsystem returns the subsystem this panel views.
func (p *Policy) Subsystem() string {
	return p.config.Subsystem
}

// Topic returns the channel topic, <context>:<subsystem>.
func (p *Policy) Topic() string {
	ctx := p.config.TopicContext
	if ctx == "" {
		ctx = "ui"
	}
	return ctx + ":" + p.config.Subsystem
}

// ClickEvent returns the event name commands are pushed with.
func (p *Policy) ClickEvent() string {
	return p.config.Subsystem + "_click"
}

// ReplyTag returns the success tag of snapshot-bearing replies.
// Defaults to the subsystem name.
func (p *Policy) ReplyTag() string {
	if p.config.ReplyTag == "" {
		return p.config.Subsystem
	}
	return p.config.ReplyTag
}

// CommandTimeout returns how long a push waits for its reply.
func (p *Policy) CommandTimeout() time.Duration {
	if p.config.CommandTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.config.CommandTimeoutMs) * time.Millisecond
}

// LiveUpdateInterval returns the live-update pulse period.
func (p *Policy) LiveUpdateInterval() time.Duration {
	if p.config.LiveUpdateIntervalMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.config.LiveUpdateIntervalMs) * time.Millisecond
}

// HeartbeatInterval returns the transport keepalive period.
func (p *Policy) HeartbeatInterval() time.Duration {
	if p.config.HeartbeatIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.config.HeartbeatIntervalSeconds) * time.Second
}

// SessionFile returns the session database path.
// If unset, defaults to ~/.config/helmpanel/session.sqlite.
// Set to "none" to keep view state in memory.
func (p *Policy) SessionFile() string {
	if p.config.SessionFile == "" {
		return GlobalSessionFile()
	}
	return p.config.SessionFile
}

// SessionID returns the browsing-session id view state is scoped to.
func (p *Policy) SessionID() string {
	return p.config.SessionID
}

// LogFile returns the configured log file path.
// If unset, defaults to ~/.config/helmpanel/helmpanel.log.
// Set to "none" or "off" to disable file logging entirely.
func (p *Policy) LogFile() string {
	if p.config.LogFile == "" {
		return filepath.Join(GlobalStateDir(), "helmpanel.log")
	}
	return p.config.LogFile
}

// HTTPPort returns the dashboard port; 0 disables the dashboard.
func (p *Policy) HTTPPort() int {
	return p.config.HTTPPort
}

// DebugBroadcasts reports whether broadcast snapshots are logged.
func (p *Policy) DebugBroadcasts() bool {
	return p.config.DebugBroadcasts
}

// Layout returns the control vocabulary as a domain layout.
func (p *Policy) Layout() domain.Layout {
	p.mu.RLock()
	lc := p.config.Layout
	p.mu.RUnlock()
	if lc == nil {
		lc = DefaultLayout()
	}
	return ToLayout(p.config.Subsystem, lc)
}

// ReloadLayout re-reads the layout from a config file. Other settings are
// fixed for the life of the connection and are left alone.
func (p *Policy) ReloadLayout(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.config.Layout = cfg.Layout
	p.mu.Unlock()
	return nil
}

// ToLayout converts a layout declaration into the domain vocabulary.
func ToLayout(subsystem string, lc *LayoutConfig) domain.Layout {
	l := domain.Layout{Subsystem: subsystem, Actions: append([]string(nil), lc.Actions...)}
	for _, w := range lc.Workers {
		wl := domain.WorkerLayout{
			Name:      w.Name,
			FirstMode: w.FirstMode,
			Modes:     append([]string(nil), w.Modes...),
			Actions:   append([]string(nil), w.Actions...),
		}
		for _, s := range w.SubWorkers {
			kind := domain.KindDevice
			if s.Kind == string(domain.KindSubWorker) {
				kind = domain.KindSubWorker
			}
			wl.SubWorkers = append(wl.SubWorkers, domain.SubWorkerSpec{Name: s.Name, Kind: kind})
		}
		l.Workers = append(l.Workers, wl)
	}
	return l
}

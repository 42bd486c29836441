// Package config handles reading and writing ddt.yaml and the
// instructions bundle shown to participants.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "ddt.yaml"

// Config is the top-level structure for ddt.yaml.
type Config struct {
	Version          int           `yaml:"version"`
	Participant      string        `yaml:"participant"`
	Server           ServerConfig  `yaml:"server"`
	Session          SessionConfig `yaml:"session"`
	Trials           TrialsConfig  `yaml:"trials"`
	Keys             KeyConfig     `yaml:"keys"`
	DataDir          string        `yaml:"data_dir"`
	InstructionsFile string        `yaml:"instructions_file"` // empty means built-in text
}

// ServerConfig locates the design service.
type ServerConfig struct {
	URL            string `yaml:"url"`
	RequestTimeout int    `yaml:"request_timeout"` // ms
}

// SessionConfig identifies the participant's run.
type SessionConfig struct {
	ID      string `yaml:"id"`
	Count   int    `yaml:"count"`
	Current int    `yaml:"current"` // 1-based index of the session to start in
}

// TrialsConfig controls the tutorial and main trial blocks.
type TrialsConfig struct {
	ShowTutorial bool `yaml:"show_tutorial"`
	NumTrain     int  `yaml:"num_train_trials"`
	NumMain      int  `yaml:"num_main_trials"`
	FixationMs   int  `yaml:"fixation_ms"`
}

// KeyConfig names the keys accepted on each kind of screen. Names follow
// terminal key names ("z", "/", "enter"); "space" is the space bar and
// "slash" is "/".
type KeyConfig struct {
	Ack   []string `yaml:"ack"`
	Left  []string `yaml:"left"`
	Right []string `yaml:"right"`
}

// RequestTimeoutDuration returns the per-request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Millisecond
}

// FixationDuration returns how long the fixation marker is held.
func (c *Config) FixationDuration() time.Duration {
	return time.Duration(c.Trials.FixationMs) * time.Millisecond
}

// ReadConfig reads the YAML config at path. Fields missing from the file
// keep their DefaultConfig values.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to path, creating parent directories as needed.
func WriteConfig(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		Participant: "0",
		Server: ServerConfig{
			URL:            "http://127.0.0.1:5050",
			RequestTimeout: 10000,
		},
		Session: SessionConfig{
			Count:   1,
			Current: 1,
		},
		Trials: TrialsConfig{
			ShowTutorial: true,
			NumTrain:     5,
			NumMain:      20,
			FixationMs:   1000,
		},
		Keys: KeyConfig{
			Ack:   []string{"space", "enter"},
			Left:  []string{"z"},
			Right: []string{"m", "/"},
		},
		DataDir: ".ddt",
	}
}

// Validate reports the first setting that would make a run impossible.
func (c *Config) Validate() error {
	switch {
	case c.Server.URL == "":
		return errors.New("server.url is required")
	case c.Session.Count < 1:
		return fmt.Errorf("session.count must be at least 1, got %d", c.Session.Count)
	case c.Session.Current < 1:
		return fmt.Errorf("session.current must be at least 1, got %d", c.Session.Current)
	case c.Session.Current > c.Session.Count:
		return fmt.Errorf("session.current %d is past session.count %d", c.Session.Current, c.Session.Count)
	case c.Trials.NumMain < 1:
		return fmt.Errorf("trials.num_main_trials must be at least 1, got %d", c.Trials.NumMain)
	case c.Trials.NumTrain < 0:
		return fmt.Errorf("trials.num_train_trials must not be negative, got %d", c.Trials.NumTrain)
	case c.Trials.FixationMs < 0:
		return fmt.Errorf("trials.fixation_ms must not be negative, got %d", c.Trials.FixationMs)
	case len(c.Keys.Ack) == 0:
		return errors.New("keys.ack must name at least one key")
	case len(c.Keys.Left) == 0 || len(c.Keys.Right) == 0:
		return errors.New("keys.left and keys.right must each name at least one key")
	}

	for _, l := range c.Keys.Left {
		for _, r := range c.Keys.Right {
			if normalizeKey(l) == normalizeKey(r) {
				return fmt.Errorf("key %q is bound to both left and right", l)
			}
		}
	}

	return nil
}

// normalizeKey mirrors experiment.NormalizeKey for overlap checks.
func normalizeKey(name string) string {
	switch name {
	case "space":
		return " "
	case "slash":
		return "/"
	}
	return name
}

// Package config reads and writes ~/.spark/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/spark/internal/firstmove"
)

// Config is the global spark configuration.
type Config struct {
	DefaultProfile string    `toml:"default_profile"`
	Match          Match     `toml:"match"`
	Privacy        Privacy   `toml:"privacy"`
	Timings        Timings   `toml:"timings"`
	Responder      Responder `toml:"responder"`
}

// Match describes the conversation the client opens.
type Match struct {
	PeerID                 string    `toml:"peer_id"`
	PeerName               string    `toml:"peer_name"`
	FirstMessagePreference string    `toml:"first_message_preference"`
	PeerReadReceipts       bool      `toml:"peer_read_receipts"`
	ExpiresAt              time.Time `toml:"expires_at,omitempty"`
}

// Privacy holds the local user's preferences.
type Privacy struct {
	ReadReceipts bool `toml:"read_receipts"`
}

// Timings overrides engine timer durations. Empty values keep the defaults.
type Timings struct {
	DeliveryDelay     Duration `toml:"delivery_delay,omitempty"`
	ReadDelay         Duration `toml:"read_delay,omitempty"`
	ReplyDelay        Duration `toml:"reply_delay,omitempty"`
	DispatchInterval  Duration `toml:"dispatch_interval,omitempty"`
	CountdownInterval Duration `toml:"countdown_interval,omitempty"`
	CallConnectDelay  Duration `toml:"call_connect_delay,omitempty"`
	CallTick          Duration `toml:"call_tick,omitempty"`
	RecordingTick     Duration `toml:"recording_tick,omitempty"`
}

// Responder configures the simulated peer.
type Responder struct {
	Replies []string `toml:"replies"`
	Seed    int64    `toml:"seed,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("2.5s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		Match: Match{
			PeerID:                 "p_alex",
			PeerName:               "Alex",
			FirstMessagePreference: string(firstmove.Anyone),
			PeerReadReceipts:       true,
		},
		Privacy: Privacy{ReadReceipts: true},
	}
}

// Load reads config from path over the defaults. A missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks values the engine would reject later.
func (c *Config) Validate() error {
	if c.Match.PeerID == "" {
		return errors.New("match.peer_id is required")
	}
	if _, err := firstmove.ParsePreference(c.Match.FirstMessagePreference); err != nil {
		return fmt.Errorf("match.first_message_preference: %w", err)
	}
	for name, d := range map[string]Duration{
		"delivery_delay":     c.Timings.DeliveryDelay,
		"read_delay":         c.Timings.ReadDelay,
		"reply_delay":        c.Timings.ReplyDelay,
		"dispatch_interval":  c.Timings.DispatchInterval,
		"countdown_interval": c.Timings.CountdownInterval,
		"call_connect_delay": c.Timings.CallConnectDelay,
		"call_tick":          c.Timings.CallTick,
		"recording_tick":     c.Timings.RecordingTick,
	} {
		if d.Duration < 0 {
			return fmt.Errorf("timings.%s must not be negative", name)
		}
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config is the top-level client configuration loaded from file/env.
type Config struct {
	// Endpoint is the event store gRPC address.
	Endpoint string `json:"endpoint"`
	// ClientID identifies this client instance. Generated when empty.
	ClientID string `json:"clientId"`
	// ComponentID names the logical application this client belongs to.
	ComponentID string `json:"componentId"`

	FlowControl FlowControl `json:"flowControl"`
	Liveness    Liveness    `json:"liveness"`

	// TokenDir is the directory of the durable checkpoint store.
	TokenDir string `json:"tokenDir"`
	// Filter is an optional CEL expression applied client-side.
	Filter string `json:"filter"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel"`
}

// FlowControl sizes the per-session credit window.
type FlowControl struct {
	InitialPermits int32 `json:"initialPermits"`
	Threshold      int32 `json:"threshold"`
	Refill         int32 `json:"refill"`
}

// Liveness captures the heartbeat cadence.
type Liveness struct {
	Enabled        bool `json:"enabled"`
	InitialDelayMs int  `json:"initialDelayMs"`
	DelayMs        int  `json:"delayMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Endpoint:    "127.0.0.1:50051",
		ComponentID: "strand-client",
		FlowControl: FlowControl{
			InitialPermits: 1000,
			Threshold:      500,
			Refill:         500,
		},
		Liveness: Liveness{
			Enabled:        true,
			InitialDelayMs: 10_000,
			DelayMs:        1_000,
		},
		TokenDir: filepath.Join(DefaultDataDir(), "tokens"),
		LogLevel: "info",
	}
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported yet; use JSON for now")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

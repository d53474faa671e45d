package config

import (
	"os"
	"strconv"
)

// FromEnv overlays STRAND_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("STRAND_GRPC"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("STRAND_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("STRAND_COMPONENT_ID"); v != "" {
		cfg.ComponentID = v
	}
	if v := os.Getenv("STRAND_FLOW_INITIAL_PERMITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlowControl.InitialPermits = int32(n)
		}
	}
	if v := os.Getenv("STRAND_FLOW_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlowControl.Threshold = int32(n)
		}
	}
	if v := os.Getenv("STRAND_FLOW_REFILL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlowControl.Refill = int32(n)
		}
	}
	if v := os.Getenv("STRAND_LIVENESS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Liveness.Enabled = b
		}
	}
	if v := os.Getenv("STRAND_LIVENESS_INITIAL_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Liveness.InitialDelayMs = n
		}
	}
	if v := os.Getenv("STRAND_LIVENESS_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Liveness.DelayMs = n
		}
	}
	if v := os.Getenv("STRAND_TOKEN_DIR"); v != "" {
		cfg.TokenDir = v
	}
	if v := os.Getenv("STRAND_FILTER"); v != "" {
		cfg.Filter = v
	}
	if v := os.Getenv("STRAND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Package config provides loading and environment overlay for strand client
// configuration. It exposes a Default() baseline, a JSON file loader, and a
// STRAND_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/strand.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config

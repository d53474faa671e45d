package client

import (
	"encoding/base64"
	"encoding/json"
	"time"
	"unicode/utf8"

	cfgpkg "github.com/rzbill/strand/internal/config"
	"github.com/rzbill/strand/internal/tokenstore"
	"github.com/rzbill/strand/pkg/stream"
	"github.com/rzbill/strand/pkg/token"
)

// loadConfig returns the effective configuration: defaults overlaid with
// STRAND_* environment variables.
func loadConfig() cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfgpkg.FromEnv(&cfg)
	return cfg
}

// openTokenStore opens the durable checkpoint store from the configuration.
func openTokenStore(cfg cfgpkg.Config) (*tokenstore.Store, error) {
	return tokenstore.Open(cfg.TokenDir)
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// decodedEvent returns a printable map for one event with position, type
// fields, and one of payload_json, payload_text, or payload_b64.
func decodedEvent(ev stream.Event) map[string]any {
	out := map[string]any{
		"type": ev.TypeName,
	}
	if ev.TypeRevision != "" {
		out["revision"] = ev.TypeRevision
	}
	if ev.Token != nil {
		if p, ok := ev.Token.Position(); ok {
			out["position"] = p
		}
	}
	if ev.AggregateID != "" {
		out["aggregate_id"] = ev.AggregateID
		out["aggregate_seq"] = ev.AggregateSequence
	}
	if ev.Snapshot {
		out["snapshot"] = true
	}
	if len(ev.Metadata) > 0 {
		out["metadata"] = ev.Metadata
	}

	payload, _ := ev.Payload.([]byte)
	// Try JSON first if it looks like JSON
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	// Then UTF-8 text if valid
	if utf8.Valid(payload) {
		out["payload_text"] = string(payload)
		return out
	}
	// Fallback to base64
	out["payload_b64"] = base64.StdEncoding.EncodeToString(payload)
	return out
}

// decodedToken returns a printable map for a stored checkpoint.
func decodedToken(tok token.Token) map[string]any {
	out := map[string]any{}
	if tok == nil {
		return out
	}
	data, err := token.Marshal(tok)
	if err != nil {
		return out
	}
	var v any
	if json.Unmarshal(data, &v) == nil {
		out["token"] = v
	}
	if p, ok := tok.Position(); ok {
		out["position"] = p
	}
	return out
}

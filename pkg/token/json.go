package token

import (
	"encoding/json"
	"fmt"
)

// Checkpoint encoding: a tagged JSON variant, stable across versions so that
// a persisted token round-trips to an equal token.
//
//	{"type":"global","index":42}
//	{"type":"multi","tokens":{"a":{"type":"global","index":1},"b":null}}
const (
	kindGlobal = "global"
	kindMulti  = "multi"
)

// Marshal encodes a token for checkpoint persistence.
func Marshal(t Token) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("token: cannot marshal nil token")
	}
	return json.Marshal(t)
}

// Unmarshal decodes a checkpoint produced by Marshal.
func Unmarshal(data []byte) (Token, error) {
	var probe struct {
		Type   string                     `json:"type"`
		Index  int64                      `json:"index"`
		Tokens map[string]json.RawMessage `json:"tokens"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("token: decode checkpoint: %w", err)
	}
	switch probe.Type {
	case kindGlobal:
		return NewGlobal(probe.Index), nil
	case kindMulti:
		children := make(map[string]Token, len(probe.Tokens))
		for source, raw := range probe.Tokens {
			if string(raw) == "null" {
				children[source] = nil
				continue
			}
			child, err := Unmarshal(raw)
			if err != nil {
				return nil, fmt.Errorf("token: source %q: %w", source, err)
			}
			children[source] = child
		}
		return NewMulti(children), nil
	default:
		return nil, fmt.Errorf("token: unknown token kind %q", probe.Type)
	}
}

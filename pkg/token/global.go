package token

import "encoding/json"

// Global is a tracking token for a single stream, wrapping one 64-bit global
// sequence index.
type Global struct {
	index int64
}

// NewGlobal returns a Global token at the given index.
func NewGlobal(index int64) Global { return Global{index: index} }

// Index returns the global sequence index this token points at.
func (g Global) Index() int64 { return g.index }

// LowerBound returns the numeric minimum of both tokens.
func (g Global) LowerBound(other Token) (Token, error) {
	o, ok := other.(Global)
	if !ok {
		return nil, incompatible("expected Global, got %T", other)
	}
	if o.index < g.index {
		return o, nil
	}
	return g, nil
}

// UpperBound returns the numeric maximum of both tokens.
func (g Global) UpperBound(other Token) (Token, error) {
	o, ok := other.(Global)
	if !ok {
		return nil, incompatible("expected Global, got %T", other)
	}
	if o.index > g.index {
		return o, nil
	}
	return g, nil
}

// Covers reports whether this token is at or past other.
func (g Global) Covers(other Token) (bool, error) {
	o, ok := other.(Global)
	if !ok {
		return false, incompatible("expected Global, got %T", other)
	}
	return g.index >= o.index, nil
}

// Position reports the global index; always present.
func (g Global) Position() (int64, bool) { return g.index, true }

// Equal reports whether other is a Global at the same index.
func (g Global) Equal(other Token) bool {
	o, ok := other.(Global)
	return ok && o.index == g.index
}

func (g Global) sealed() {}

// MarshalJSON encodes the token in the tagged checkpoint format.
func (g Global) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Index int64  `json:"index"`
	}{Type: kindGlobal, Index: g.index})
}

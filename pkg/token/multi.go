package token

import (
	"encoding/json"
	"sort"
)

// Multi is a combined tracking token used when consuming from multiple named
// event sources. It maps each source id to the child token tracking that
// source's stream.
type Multi struct {
	tokens map[string]Token
}

// NewMulti returns a Multi over a copy of the provided source-to-token map.
// Child tokens may be nil for sources that have not been initialized yet.
func NewMulti(tokens map[string]Token) Multi {
	cp := make(map[string]Token, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return Multi{tokens: cp}
}

// TokenFor returns the child token for a source, and whether the source is
// part of this token.
func (m Multi) TokenFor(source string) (Token, bool) {
	t, ok := m.tokens[source]
	return t, ok
}

// Sources returns the sorted set of source ids this token tracks.
func (m Multi) Sources() []string {
	out := make([]string, 0, len(m.tokens))
	for k := range m.tokens {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AdvancedTo returns a new Multi identical to this one except that the child
// for source is replaced with child. The receiver is left unchanged.
func (m Multi) AdvancedTo(source string, child Token) Multi {
	cp := make(map[string]Token, len(m.tokens))
	for k, v := range m.tokens {
		cp[k] = v
	}
	cp[source] = child
	return Multi{tokens: cp}
}

// LowerBound merges key-wise, taking each child's lower bound.
func (m Multi) LowerBound(other Token) (Token, error) {
	o, err := m.compatible(other)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]Token, len(m.tokens))
	for source, theirs := range o.tokens {
		ours := m.tokens[source]
		if ours == nil || theirs == nil {
			return nil, incompatible("uninitialized constituent token for source %q", source)
		}
		lb, err := ours.LowerBound(theirs)
		if err != nil {
			return nil, err
		}
		merged[source] = lb
	}
	return Multi{tokens: merged}, nil
}

// UpperBound merges key-wise, taking each child's upper bound.
func (m Multi) UpperBound(other Token) (Token, error) {
	o, err := m.compatible(other)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]Token, len(m.tokens))
	for source, theirs := range o.tokens {
		ours := m.tokens[source]
		if ours == nil || theirs == nil {
			return nil, incompatible("uninitialized constituent token for source %q", source)
		}
		ub, err := ours.UpperBound(theirs)
		if err != nil {
			return nil, err
		}
		merged[source] = ub
	}
	return Multi{tokens: merged}, nil
}

// Covers reports whether every constituent covers its counterpart.
func (m Multi) Covers(other Token) (bool, error) {
	o, err := m.compatible(other)
	if err != nil {
		return false, err
	}
	for source, ours := range m.tokens {
		theirs := o.tokens[source]
		if ours == nil {
			if theirs != nil {
				return false, nil
			}
			continue
		}
		if theirs != nil {
			covered, err := ours.Covers(theirs)
			if err != nil {
				return false, err
			}
			if !covered {
				return false, nil
			}
		}
	}
	return true, nil
}

// Position reports the sum of all constituent positions. It is absent only
// when no constituent reports a position; a constituent without a position
// contributes zero.
func (m Multi) Position() (int64, bool) {
	var sum int64
	present := false
	for _, t := range m.tokens {
		if t == nil {
			continue
		}
		if p, ok := t.Position(); ok {
			sum += p
			present = true
		}
	}
	if !present {
		return 0, false
	}
	return sum, true
}

// Equal reports value equality. Tokens with different source sets are
// unequal, not an error. A nil constituent on the receiver side makes the
// tokens unequal, mirroring the behavior checkpoint stores rely on.
func (m Multi) Equal(other Token) bool {
	o, ok := other.(Multi)
	if !ok {
		return false
	}
	if len(m.tokens) != len(o.tokens) {
		return false
	}
	for source, ours := range m.tokens {
		if ours == nil {
			return false
		}
		theirs, ok := o.tokens[source]
		if !ok || theirs == nil || !ours.Equal(theirs) {
			return false
		}
	}
	return true
}

func (m Multi) sealed() {}

// compatible verifies other is a Multi with an identical source set.
func (m Multi) compatible(other Token) (Multi, error) {
	o, ok := other.(Multi)
	if !ok {
		return Multi{}, incompatible("expected Multi, got %T", other)
	}
	if len(m.tokens) != len(o.tokens) {
		return Multi{}, incompatible("tokens track different source sets")
	}
	for source := range m.tokens {
		if _, ok := o.tokens[source]; !ok {
			return Multi{}, incompatible("tokens track different source sets")
		}
	}
	return o, nil
}

// MarshalJSON encodes the token in the tagged checkpoint format.
func (m Multi) MarshalJSON() ([]byte, error) {
	children := make(map[string]json.RawMessage, len(m.tokens))
	for source, t := range m.tokens {
		if t == nil {
			children[source] = json.RawMessage("null")
			continue
		}
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		children[source] = b
	}
	return json.Marshal(struct {
		Type   string                     `json:"type"`
		Tokens map[string]json.RawMessage `json:"tokens"`
	}{Type: kindMulti, Tokens: children})
}

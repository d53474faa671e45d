// Package token implements tracking tokens: immutable position markers for
// ordered event streams, with merge and containment operations.
//
// The token family is closed: Global tracks a single monotonically increasing
// index, Multi combines one child token per named source. Operations between
// tokens of different kinds, or between Multi tokens with different source
// sets, fail fast with an IncompatibleTokenError.
package token

import "fmt"

// Token is an opaque position in an ordered event stream.
//
// Tokens are immutable value objects: every operation returns a new token and
// never mutates the receiver. This is required because tokens are shared
// across goroutines and persisted as checkpoints.
type Token interface {
	// LowerBound returns the token covered by both this token and other.
	LowerBound(other Token) (Token, error)
	// UpperBound returns the token covering the union of this token and other.
	UpperBound(other Token) (Token, error)
	// Covers reports whether this token's position implies other has already
	// been consumed.
	Covers(other Token) (bool, error)
	// Position reports an optional numeric measure of stream progress, for
	// metrics and ordering only. It must not be used for equality or covers.
	Position() (int64, bool)
	// Equal reports value equality with other.
	Equal(other Token) bool

	sealed()
}

// IncompatibleTokenError signals a structural mismatch between tokens: a
// cross-kind operation, or Multi operands with differing source sets. It
// indicates a configuration error, not a transient condition.
type IncompatibleTokenError struct {
	Reason string
}

func (e *IncompatibleTokenError) Error() string {
	return "incompatible tracking token: " + e.Reason
}

func incompatible(format string, args ...interface{}) error {
	return &IncompatibleTokenError{Reason: fmt.Sprintf(format, args...)}
}

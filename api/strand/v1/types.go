// Package strandv1 defines the wire messages and gRPC bindings for the
// strand event-stream protocol (strand.v1).
//
// The types are maintained by hand and travel over gRPC with a JSON codec
// (see codec.go); no generated code is checked in.
package strandv1

// StreamRequest is the client-to-server message of the OpenStream call.
// Exactly one of the fields is set: Open once at session start, FlowControl
// for every subsequent permit grant.
type StreamRequest struct {
	Open        *OpenStream  `json:"open,omitempty"`
	FlowControl *FlowControl `json:"flowControl,omitempty"`
}

// OpenStream starts a tailing session.
type OpenStream struct {
	// ResumeFromPosition is the first global position the server should send.
	ResumeFromPosition int64 `json:"resumeFromPosition"`
	// ClientID identifies the client instance.
	ClientID string `json:"clientId"`
	// ComponentID identifies the logical application component.
	ComponentID string `json:"componentId"`
	// InitialPermits grants the server its starting send budget.
	InitialPermits int32 `json:"initialPermits"`
}

// FlowControl replenishes the server's send budget.
type FlowControl struct {
	Permits int32 `json:"permits"`
}

// EventEnvelope is a single raw event pushed by the server. Position is
// strictly monotonic within a session.
type EventEnvelope struct {
	Payload      []byte            `json:"payload"`
	TypeName     string            `json:"typeName"`
	TypeRevision string            `json:"typeRevision,omitempty"`
	Position     int64             `json:"position"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	// Aggregate-stream identity, present only for domain events.
	AggregateID       string `json:"aggregateId,omitempty"`
	AggregateSequence int64  `json:"aggregateSequence,omitempty"`
	Snapshot          bool   `json:"snapshot,omitempty"`
}

package stream

import (
	strandv1 "github.com/rzbill/strand/api/strand/v1"
	"github.com/rzbill/strand/pkg/token"
)

// Event is a logical event as observed by a consumer, after the pipeline has
// upcast and deserialized the raw envelope it originated from.
type Event struct {
	// Token marks the stream position at which this event was observed.
	Token token.Token

	TypeName     string
	TypeRevision string
	// Payload is the pipeline's deserialization result. The no-op pipeline
	// leaves the raw payload bytes here.
	Payload  interface{}
	Metadata map[string]string

	// Aggregate-stream identity, zero-valued for non-domain events.
	AggregateID       string
	AggregateSequence int64
	Snapshot          bool
}

// Pipeline turns one raw envelope into zero or more logical events. It models
// the external upcast/deserialize chain: a single raw record may be split,
// rewritten, or dropped entirely during read.
//
// Pipelines are invoked lazily, from the consumer goroutine, only when an
// event is actually observed.
type Pipeline interface {
	Upcast(env *strandv1.EventEnvelope) ([]Event, error)
}

// PipelineFunc adapts a function to the Pipeline interface.
type PipelineFunc func(env *strandv1.EventEnvelope) ([]Event, error)

// Upcast implements Pipeline.
func (f PipelineFunc) Upcast(env *strandv1.EventEnvelope) ([]Event, error) { return f(env) }

// NoopPipeline maps every envelope to exactly one Event, carrying the payload
// bytes through untouched.
func NoopPipeline() Pipeline {
	return PipelineFunc(func(env *strandv1.EventEnvelope) ([]Event, error) {
		return []Event{{
			Token:             token.NewGlobal(env.Position),
			TypeName:          env.TypeName,
			TypeRevision:      env.TypeRevision,
			Payload:           env.Payload,
			Metadata:          env.Metadata,
			AggregateID:       env.AggregateID,
			AggregateSequence: env.AggregateSequence,
			Snapshot:          env.Snapshot,
		}}, nil
	})
}

// Package filter provides client-side event filtering with CEL expressions,
// evaluated against logical events after the upcast pipeline.
package filter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/strand/pkg/stream"
)

// Filter wraps a compiled CEL program evaluated per event. A disabled filter
// (empty expression) matches everything.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// New compiles expr. An empty expression yields a disabled filter.
func New(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("position", cel.IntType),
		cel.Variable("type", cel.StringType),
		cel.Variable("revision", cel.StringType),
		cel.Variable("aggregate_id", cel.StringType),
		cel.Variable("aggregate_seq", cel.IntType),
		cel.Variable("snapshot", cel.BoolType),
		cel.Variable("text", cel.StringType),
		// Parsed JSON payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.StringType)),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Enabled reports whether an expression was compiled.
func (f Filter) Enabled() bool { return f.enabled }

// Eval evaluates the compiled expression against an event. A disabled filter
// returns true; an evaluation error drops the event.
func (f Filter) Eval(ev stream.Event) bool {
	if !f.enabled {
		return true
	}
	var position int64
	if ev.Token != nil {
		if p, ok := ev.Token.Position(); ok {
			position = p
		}
	}
	payload, _ := ev.Payload.([]byte)
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	metadata := ev.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"position":      position,
		"type":          ev.TypeName,
		"revision":      ev.TypeRevision,
		"aggregate_id":  ev.AggregateID,
		"aggregate_seq": ev.AggregateSequence,
		"snapshot":      ev.Snapshot,
		"text":          string(payload),
		"json":          jsonObj,
		"metadata":      metadata,
		"now_ms":        time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

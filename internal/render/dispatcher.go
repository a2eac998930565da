package render

import (
	"encoding/json"

	"relay-cli/internal/protocol"
)

// BlockRenderer turns one decoded record into at most one transcript block.
// Implementations are pure: no side effects, total over partial records. A
// returned block ends with blank-line spacing so blocks concatenate cleanly.
type BlockRenderer interface {
	Type() string
	Render(rec protocol.Record) (string, bool)
}

// Dispatcher routes records to renderers by their type discriminant.
type Dispatcher struct {
	renderers map[string]BlockRenderer
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{renderers: map[string]BlockRenderer{}}
	for _, r := range defaultRenderers() {
		d.renderers[r.Type()] = r
	}
	return d
}

// Register adds or replaces the renderer for one discriminant.
func (d *Dispatcher) Register(r BlockRenderer) {
	if r == nil {
		return
	}
	d.renderers[r.Type()] = r
}

// Dispatch renders rec. Unknown discriminants fall back to re-encoding the
// whole record, so new record types stay visible instead of being dropped.
func (d *Dispatcher) Dispatch(rec protocol.Record) (string, bool) {
	if r := d.renderers[rec.Type()]; r != nil {
		return r.Render(rec)
	}
	return renderUnknown(rec)
}

func renderUnknown(rec protocol.Record) (string, bool) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", false
	}
	return string(data) + "\n", true
}

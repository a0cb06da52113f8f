package domain

import "encoding/json"

// ChangePayload wraps a JSON snapshot of a change's before/after state.
// Rules unmarshal the raw bytes into typed entities as needed.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload marshals a typed value into a payload wrapper. An
// undefined payload is returned when marshalling fails.
func NewChangePayload[T any](value T) ChangePayload {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}
	}
	return ChangePayload{defined: true, raw: raw}
}

// UndefinedChangePayload returns an uninitialized payload wrapper, used
// for the missing side of create and delete changes.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload has been initialized.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// Raw returns a cloned copy of the underlying JSON bytes. Nil is
// returned when the payload is undefined or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	cloned := make(json.RawMessage, len(p.raw))
	copy(cloned, p.raw)
	return cloned
}

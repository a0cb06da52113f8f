package core

import (
	"encoding/json"

	"fleetcore/pkg/domain"
)

// decodeChangePayload decodes a change payload's JSON contents into a
// value of type T. The boolean result reports whether decoding produced
// a usable value.
func decodeChangePayload[T any](payload domain.ChangePayload) (T, bool) {
	var out T
	if !payload.Defined() {
		return out, false
	}
	raw := payload.Raw()
	if len(raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

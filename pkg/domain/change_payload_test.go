package domain

import (
	"encoding/json"
	"testing"
)

func TestChangePayloadDefined(t *testing.T) {
	undefined := UndefinedChangePayload()
	if undefined.Defined() {
		t.Fatalf("expected undefined payload to be not defined")
	}
	if undefined.Raw() != nil {
		t.Fatalf("expected undefined payload to return nil raw bytes")
	}

	payload := NewChangePayload(Machine{ID: "m1", Name: "Trattore T-5000", Status: StatusRunning})
	if !payload.Defined() {
		t.Fatalf("expected payload to be defined")
	}
	var out Machine
	if err := json.Unmarshal(payload.Raw(), &out); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if out.ID != "m1" || out.Status != StatusRunning {
		t.Fatalf("expected round-tripped machine, got %+v", out)
	}
}

func TestChangePayloadUnmarshalableValue(t *testing.T) {
	payload := NewChangePayload(func() {})
	if payload.Defined() {
		t.Fatalf("expected unmarshalable value to produce an undefined payload")
	}
}

func TestChangePayloadRawIsCloned(t *testing.T) {
	payload := NewChangePayload(Customer{ID: "c1"})
	want := string(payload.Raw())

	first := payload.Raw()
	first[2] = 'X'
	second := payload.Raw()
	if string(second) != want {
		t.Fatalf("expected stored payload to remain unchanged, got %s", second)
	}
}

package cart

import (
	"encoding/json"
	"testing"
)

func TestItemKeyFallsBackToLegacyID(t *testing.T) {
	if got := (Item{ID: "a", LegacyID: "b"}).Key(); got != "a" {
		t.Fatalf("expected primary id, got %q", got)
	}
	if got := (Item{LegacyID: "b"}).Key(); got != "b" {
		t.Fatalf("expected legacy id, got %q", got)
	}
	if got := (Item{}).Key(); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
}

func TestLineDecodeResolvesKey(t *testing.T) {
	raw := `{"medicine":{"_id":"m-9","name":"Cetirizine","price":4.5},"quantity":2}`

	var line Line
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		t.Fatalf("Unmarshal err: %v", err)
	}
	if line.Key != "m-9" {
		t.Fatalf("expected key m-9, got %q", line.Key)
	}
	if line.Subtotal() != 9 {
		t.Fatalf("expected subtotal 9, got %v", line.Subtotal())
	}
}

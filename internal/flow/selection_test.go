package flow

import "testing"

func TestSelectionMapSingleUse(t *testing.T) {
	m := NewSelectionMap()

	key := m.Put(Selection{AdID: "a1", Channel: "-1001"})
	if len(key) != 8 {
		t.Fatalf("key length = %d", len(key))
	}

	sel, ok := m.Claim(key)
	if !ok || sel.AdID != "a1" || sel.Channel != "-1001" {
		t.Fatalf("claim = %+v ok=%v", sel, ok)
	}

	if _, ok := m.Claim(key); ok {
		t.Fatal("second claim of the same key succeeded")
	}
}

func TestSelectionMapDistinctKeys(t *testing.T) {
	m := NewSelectionMap()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := m.Put(Selection{AdID: "a1"})
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestSelectionMapUnknownKey(t *testing.T) {
	m := NewSelectionMap()
	if _, ok := m.Claim("missing"); ok {
		t.Fatal("claim of unknown key succeeded")
	}
}

package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key: %v", err)
	}

	if err := m.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := m.Get(ctx, "k")
	if err != nil || v != "v1" {
		t.Fatalf("get: %q %v", v, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key: %v", err)
	}

	// Deleting an absent key is not an error.
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestMemoryVersioning(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v, version, err := m.GetVersioned(ctx, "k")
	if err != nil || v != "" || version != 0 {
		t.Fatalf("missing key: %q %d %v", v, version, err)
	}

	// expect=0 creates.
	if err := m.SetVersioned(ctx, "k", "v1", 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	// expect=0 against an existing key conflicts.
	if err := m.SetVersioned(ctx, "k", "v2", 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("create over existing: %v", err)
	}

	v, version, err = m.GetVersioned(ctx, "k")
	if err != nil || v != "v1" || version == 0 {
		t.Fatalf("get versioned: %q %d %v", v, version, err)
	}

	if err := m.SetVersioned(ctx, "k", "v2", version); err != nil {
		t.Fatalf("versioned update: %v", err)
	}
	// The old version is now stale.
	if err := m.SetVersioned(ctx, "k", "v3", version); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: %v", err)
	}

	v, _, _ = m.GetVersioned(ctx, "k")
	if v != "v2" {
		t.Fatalf("value = %q, want v2", v)
	}
}

func TestMemorySetBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, v1, _ := m.GetVersioned(ctx, "k")
	if err := m.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, v2, _ := m.GetVersioned(ctx, "k")
	if v2 <= v1 {
		t.Fatalf("version did not advance: %d -> %d", v1, v2)
	}
}

package decoder

import (
	"errors"
	"testing"

	"github.com/madsing98/coachlightd/internal/nvram"
)

// countingStore wraps the in-memory store and counts every cell write,
// so tests can pin down exactly when non-volatile writes happen.
type countingStore struct {
	*nvram.Memory
	writes int
}

func newCountingStore(size int) *countingStore {
	return &countingStore{Memory: nvram.NewMemory(size)}
}

func (c *countingStore) WriteByte(addr int, value byte) error {
	c.writes++
	return c.Memory.WriteByte(addr, value)
}

func (c *countingStore) WriteBlock(addr int, data []byte) error {
	c.writes++
	return c.Memory.WriteBlock(addr, data)
}

func TestRegistry_WriteRead(t *testing.T) {
	r := NewRegistry(DefaultSchema(), newCountingStore(64))

	changed, err := r.Write(CVPrimaryAddress, 42)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !changed {
		t.Error("first write should report a change")
	}

	value, err := r.Read(CVPrimaryAddress)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if value != 42 {
		t.Errorf("value mismatch: expected 42, got %d", value)
	}
}

func TestRegistry_SameValueWriteSkipsStore(t *testing.T) {
	store := newCountingStore(64)
	r := NewRegistry(DefaultSchema(), store)

	if _, err := r.Write(CVBrightness1, 50); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if store.writes != 1 {
		t.Fatalf("expected 1 store write, got %d", store.writes)
	}

	changed, err := r.Write(CVBrightness1, 50)
	if err != nil {
		t.Fatalf("repeat write failed: %v", err)
	}
	if changed {
		t.Error("repeat write should not report a change")
	}
	if store.writes != 1 {
		t.Errorf("repeat write should not touch the store, got %d writes", store.writes)
	}
}

func TestRegistry_UnknownCV(t *testing.T) {
	r := NewRegistry(DefaultSchema(), newCountingStore(64))

	if _, err := r.Read(5000); !errors.Is(err, ErrUnknownCV) {
		t.Errorf("expected ErrUnknownCV, got %v", err)
	}
	if _, err := r.Write(5000, 1); !errors.Is(err, ErrUnknownCV) {
		t.Errorf("expected ErrUnknownCV, got %v", err)
	}
	if r.IsValid(5000, false) {
		t.Error("CV 5000 should not be valid")
	}
}

func TestRegistry_ReadOnlyCV(t *testing.T) {
	r := NewRegistry(DefaultSchema(), newCountingStore(64))

	if _, err := r.Write(CVVersionID, 9); !errors.Is(err, ErrReadOnlyCV) {
		t.Errorf("expected ErrReadOnlyCV, got %v", err)
	}
	if !r.IsValid(CVVersionID, false) {
		t.Error("CV 7 should be valid for read")
	}
	if r.IsValid(CVVersionID, true) {
		t.Error("CV 7 should not be valid for write")
	}
	if !r.IsValid(CVPrimaryAddress, true) {
		t.Error("CV 1 should be valid for write")
	}
}

func TestRegistry_Seed(t *testing.T) {
	r := NewRegistry(DefaultSchema(), newCountingStore(64))

	changed, err := r.seed(CVVersionID, FirmwareVersion)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if !changed {
		t.Error("seed over a blank cache should report a change")
	}

	value, err := r.Read(CVVersionID)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if value != FirmwareVersion {
		t.Errorf("version mismatch: expected %d, got %d", FirmwareVersion, value)
	}
}

func TestRegistry_Load(t *testing.T) {
	store := newCountingStore(64)
	schema := DefaultSchema()

	block := make([]byte, len(schema))
	for i := range block {
		block[i] = byte(i + 1)
	}
	if err := store.WriteBlock(0, block); err != nil {
		t.Fatalf("prefill failed: %v", err)
	}

	r := NewRegistry(schema, store)
	if err := r.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	for i, spec := range schema {
		value, err := r.Read(spec.Number)
		if err != nil {
			t.Fatalf("read cv %d failed: %v", spec.Number, err)
		}
		if value != byte(i+1) {
			t.Errorf("cv %d mismatch: expected %d, got %d", spec.Number, i+1, value)
		}
	}
}

func TestRegistry_ApplyFactoryDefault(t *testing.T) {
	store := newCountingStore(64)
	schema := DefaultSchema()
	r := NewRegistry(schema, store)

	// A restorable entry comes back to its default
	idx, ok := schema.Lookup(CVPrimaryAddress)
	if !ok {
		t.Fatal("CV 1 missing from schema")
	}
	if _, err := r.Write(CVPrimaryAddress, 42); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	changed, err := r.ApplyFactoryDefault(idx)
	if err != nil {
		t.Fatalf("factory default failed: %v", err)
	}
	if !changed {
		t.Error("restore over a changed value should report a change")
	}
	if value, _ := r.Read(CVPrimaryAddress); value != 3 {
		t.Errorf("CV 1 should restore to 3, got %d", value)
	}

	// Firmware identity entries are left alone
	idx, ok = schema.Lookup(CVVersionID)
	if !ok {
		t.Fatal("CV 7 missing from schema")
	}
	if _, err := r.seed(CVVersionID, FirmwareVersion); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	before := store.writes
	changed, err = r.ApplyFactoryDefault(idx)
	if err != nil {
		t.Fatalf("factory default failed: %v", err)
	}
	if changed {
		t.Error("non-restorable entry should not change")
	}
	if store.writes != before {
		t.Error("non-restorable entry should not touch the store")
	}
	if value, _ := r.Read(CVVersionID); value != FirmwareVersion {
		t.Errorf("CV 7 should keep its seeded value, got %d", value)
	}

	// Out-of-range indexes are rejected
	if _, err := r.ApplyFactoryDefault(len(schema)); !errors.Is(err, ErrUnknownCV) {
		t.Errorf("expected ErrUnknownCV, got %v", err)
	}
}

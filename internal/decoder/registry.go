package decoder

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/madsing98/coachlightd/internal/nvram"
)

// ErrUnknownCV is returned for CV numbers outside the schema.
var ErrUnknownCV = errors.New("unknown cv")

// ErrReadOnlyCV is returned when a protocol write targets a
// firmware-owned CV.
var ErrReadOnlyCV = errors.New("cv is read-only")

// Registry holds the CV value cache and is the single place that
// decides whether a CV change needs a non-volatile write. Values live
// in the cache; the store is only touched when a value actually
// changes.
type Registry struct {
	schema Schema
	index  map[uint16]int
	values []uint8
	store  nvram.Store
}

// NewRegistry creates a registry over the given schema and store. The
// cache starts zeroed; call Load to fill it from the store.
func NewRegistry(schema Schema, store nvram.Store) *Registry {
	index := make(map[uint16]int, len(schema))
	for i := range schema {
		index[schema[i].Number] = i
	}
	return &Registry{
		schema: schema,
		index:  index,
		values: make([]uint8, len(schema)),
		store:  store,
	}
}

// Len returns the number of schema entries.
func (r *Registry) Len() int {
	return len(r.schema)
}

// Load refills the whole value cache from the store.
func (r *Registry) Load() error {
	block, err := r.store.ReadBlock(0, len(r.schema))
	if err != nil {
		return fmt.Errorf("read cv block: %w", err)
	}
	copy(r.values, block)
	return nil
}

// IsValid reports whether nr names a known CV and, for writes, whether
// the CV may be written by the protocol.
func (r *Registry) IsValid(nr uint16, forWrite bool) bool {
	i, ok := r.index[nr]
	if !ok {
		return false
	}
	return !forWrite || r.schema[i].Writable
}

// Read returns the cached value for a CV number.
func (r *Registry) Read(nr uint16) (uint8, error) {
	i, ok := r.index[nr]
	if !ok {
		return 0, fmt.Errorf("read cv %d: %w", nr, ErrUnknownCV)
	}
	return r.values[i], nil
}

// Write stores a new value for a CV number. Writing the value already
// held is a strict no-op: no store write happens and changed is false.
func (r *Registry) Write(nr uint16, value uint8) (bool, error) {
	i, ok := r.index[nr]
	if !ok {
		return false, fmt.Errorf("write cv %d: %w", nr, ErrUnknownCV)
	}
	if !r.schema[i].Writable {
		return false, fmt.Errorf("write cv %d: %w", nr, ErrReadOnlyCV)
	}
	return r.put(i, value)
}

// ApplyFactoryDefault restores the schema entry at index i to its
// default. Entries not marked for restore are skipped.
func (r *Registry) ApplyFactoryDefault(i int) (bool, error) {
	if i < 0 || i >= len(r.schema) {
		return false, fmt.Errorf("factory default index %d: %w", i, ErrUnknownCV)
	}
	if !r.schema[i].RestoreOnReset {
		return false, nil
	}
	return r.put(i, r.schema[i].Default)
}

// seed writes a firmware-owned value, bypassing the Writable check.
// Used for the identity CVs at boot.
func (r *Registry) seed(nr uint16, value uint8) (bool, error) {
	i, ok := r.index[nr]
	if !ok {
		return false, fmt.Errorf("seed cv %d: %w", nr, ErrUnknownCV)
	}
	return r.put(i, value)
}

// put persists and caches a value at a schema index.
func (r *Registry) put(i int, value uint8) (bool, error) {
	if r.values[i] == value {
		return false, nil
	}
	if err := r.store.WriteByte(i, value); err != nil {
		return false, fmt.Errorf("persist cv %d: %w", r.schema[i].Number, err)
	}
	r.values[i] = value
	log.Debug().
		Uint16("cv", r.schema[i].Number).
		Uint8("value", value).
		Int("addr", i).
		Msg("CV updated")
	return true, nil
}

// valueOf is a cache read by CV number for recompute paths. Numbers
// outside the schema read as zero.
func (r *Registry) valueOf(nr uint16) uint8 {
	if i, ok := r.index[nr]; ok {
		return r.values[i]
	}
	return 0
}

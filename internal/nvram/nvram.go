// Package nvram emulates the byte-addressed non-volatile memory a
// light decoder keeps its configuration in.
package nvram

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned for accesses outside the store.
var ErrOutOfRange = errors.New("address out of range")

// Erased is what an unwritten cell reads, matching EEPROM behavior.
// Boot-time blank detection depends on this.
const Erased byte = 0xFF

// DefaultSize is the emulated part size in bytes.
const DefaultSize = 256

// Store is a small random-access byte store. Implementations are used
// from the decoder's single goroutine and need not be safe for
// concurrent use.
type Store interface {
	ReadByte(addr int) (byte, error)
	WriteByte(addr int, value byte) error
	ReadBlock(addr, n int) ([]byte, error)
	WriteBlock(addr int, data []byte) error
	Size() int
	Close() error
}

// checkRange validates an address span against the store size.
func checkRange(size, addr, n int) error {
	if addr < 0 || n < 0 || addr+n > size {
		return fmt.Errorf("%d+%d exceeds %d bytes: %w", addr, n, size, ErrOutOfRange)
	}
	return nil
}

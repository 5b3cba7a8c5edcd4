package nvram

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// File is a store backed by a flat image file, one byte per cell,
// write-through with fsync so a power cut loses at most the write in
// flight.
type File struct {
	f    *os.File
	size int
}

// OpenFile opens or creates an image file. A new file is initialized
// to size erased cells (DefaultSize when 0); for an existing file the
// image length on disk wins over the size argument.
func OpenFile(path string, size int) (*File, error) {
	if size <= 0 {
		size = DefaultSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image %s: %w", path, err)
	}

	if info.Size() == 0 {
		blank := make([]byte, size)
		for i := range blank {
			blank[i] = Erased
		}
		if _, err := f.WriteAt(blank, 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("initialize image %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("sync image %s: %w", path, err)
		}
		log.Info().Str("path", path).Int("size", size).Msg("Created blank image file")
	} else {
		size = int(info.Size())
	}

	return &File{f: f, size: size}, nil
}

// ReadByte returns the cell at addr.
func (s *File) ReadByte(addr int) (byte, error) {
	block, err := s.ReadBlock(addr, 1)
	if err != nil {
		return 0, err
	}
	return block[0], nil
}

// WriteByte sets the cell at addr.
func (s *File) WriteByte(addr int, value byte) error {
	return s.WriteBlock(addr, []byte{value})
}

// ReadBlock returns n cells starting at addr.
func (s *File) ReadBlock(addr, n int) ([]byte, error) {
	if err := checkRange(s.size, addr, n); err != nil {
		return nil, err
	}
	block := make([]byte, n)
	if _, err := s.f.ReadAt(block, int64(addr)); err != nil {
		return nil, fmt.Errorf("read image at %d: %w", addr, err)
	}
	return block, nil
}

// WriteBlock writes data starting at addr and syncs.
func (s *File) WriteBlock(addr int, data []byte) error {
	if err := checkRange(s.size, addr, len(data)); err != nil {
		return err
	}
	if _, err := s.f.WriteAt(data, int64(addr)); err != nil {
		return fmt.Errorf("write image at %d: %w", addr, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync image: %w", err)
	}
	return nil
}

// Size returns the image size in bytes.
func (s *File) Size() int {
	return s.size
}

// Close closes the image file.
func (s *File) Close() error {
	return s.f.Close()
}

package nvram

// Memory is an in-memory store for tests and ephemeral runs. Contents
// are lost on exit.
type Memory struct {
	data []byte
}

// NewMemory creates a blank in-memory store of the given size, all
// cells erased. A size of 0 uses DefaultSize.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = Erased
	}
	return &Memory{data: data}
}

// ReadByte returns the cell at addr.
func (m *Memory) ReadByte(addr int) (byte, error) {
	if err := checkRange(len(m.data), addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// WriteByte sets the cell at addr.
func (m *Memory) WriteByte(addr int, value byte) error {
	if err := checkRange(len(m.data), addr, 1); err != nil {
		return err
	}
	m.data[addr] = value
	return nil
}

// ReadBlock returns a copy of n cells starting at addr.
func (m *Memory) ReadBlock(addr, n int) ([]byte, error) {
	if err := checkRange(len(m.data), addr, n); err != nil {
		return nil, err
	}
	block := make([]byte, n)
	copy(block, m.data[addr:addr+n])
	return block, nil
}

// WriteBlock writes data starting at addr.
func (m *Memory) WriteBlock(addr int, data []byte) error {
	if err := checkRange(len(m.data), addr, len(data)); err != nil {
		return err
	}
	copy(m.data[addr:], data)
	return nil
}

// Size returns the store size in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}

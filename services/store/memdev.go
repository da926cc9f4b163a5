package store

import "io"

// MemDevice is a RAM-backed Device that behaves like erased flash.
type MemDevice struct {
	buf       []byte
	blockSize int64
	Erases    int
}

// NewMemDevice returns size bytes of 0xFF. blockSize <= 0 disables erase semantics.
func NewMemDevice(size int, blockSize int64) *MemDevice {
	b := make([]byte, size)
	for i := range b {
		b[i] = 0xFF
	}
	return &MemDevice{buf: b, blockSize: blockSize}
}

func (m *MemDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.buf[off:], p), nil
}

func (m *MemDevice) EraseBlockSize() int64 { return m.blockSize }

func (m *MemDevice) EraseBlocks(start, length int64) error {
	from := start * m.blockSize
	to := from + length*m.blockSize
	if from < 0 || to > int64(len(m.buf)) {
		return io.ErrShortWrite
	}
	for i := from; i < to; i++ {
		m.buf[i] = 0xFF
	}
	m.Erases++
	return nil
}

// Snapshot returns a copy of the raw contents (a "power cycle" view).
func (m *MemDevice) Snapshot() []byte { return append([]byte(nil), m.buf...) }

// Restore replaces the contents, keeping the size.
func (m *MemDevice) Restore(b []byte) { copy(m.buf, b) }

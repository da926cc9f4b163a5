//go:build !(rp2040 || rp2350)

package store

import (
	"os"

	"sensornode-go/errcode"
)

const fileBlockSize = 4096

// FileDevice emulates a flash data region in a host file.
type FileDevice struct {
	f    *os.File
	size int64
}

// OpenFile opens (or creates, filled with 0xFF) a flash image of size bytes.
func OpenFile(path string, size int64) (*FileDevice, error) {
	if size < fileBlockSize {
		size = fileBlockSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errcode.Wrap(errcode.Error, "store.open", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errcode.Wrap(errcode.Error, "store.open", err)
	}
	d := &FileDevice{f: f, size: size}
	if st.Size() < size {
		if err := d.fill(st.Size(), size); err != nil {
			f.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *FileDevice) fill(from, to int64) error {
	blank := make([]byte, to-from)
	for i := range blank {
		blank[i] = 0xFF
	}
	if _, err := d.f.WriteAt(blank, from); err != nil {
		return errcode.Wrap(errcode.Error, "store.fill", err)
	}
	return nil
}

func (d *FileDevice) ReadAt(p []byte, off int64) (int, error)  { return d.f.ReadAt(p, off) }
func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) { return d.f.WriteAt(p, off) }
func (d *FileDevice) EraseBlockSize() int64                    { return fileBlockSize }

func (d *FileDevice) EraseBlocks(start, length int64) error {
	from := start * fileBlockSize
	return d.fill(from, from+length*fileBlockSize)
}

func (d *FileDevice) Close() error { return d.f.Close() }

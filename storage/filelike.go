package storage

import (
	"io"
	"os"
	"sync"

	"github.com/intellect4all/pagedb/common"
)

// Filelike is the positional I/O surface the engine needs from a
// backing file. os.File satisfies it directly; MemFile backs tests.
// ReadAt and WriteAt are atomic per call, so no external file lock is
// needed around a single page transfer.
type Filelike interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
}

// CreateFile creates a fresh file for exclusive read/write use. An
// existing file at path is a FailedPrecondition, matching table-create
// semantics.
func CreateFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, common.Wrap(common.FailedPrecondition, err, "unable to create file %q", path)
	}
	return f, nil
}

// OpenFile opens an existing file for read/write use.
func OpenFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, common.Wrap(common.FailedPrecondition, err, "unable to open file %q", path)
	}
	return f, nil
}

// MemFile is an in-memory Filelike. Every write takes the lock
// exclusively; readers share it and never contend with each other.
type MemFile struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemFile() *MemFile {
	return &MemFile{}
}

func (f *MemFile) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *MemFile) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if end := off + int64(len(p)); end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	return copy(f.data[off:], p), nil
}

func (f *MemFile) Sync() error {
	return nil
}

// Size reports the current file length in bytes.
func (f *MemFile) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.data))
}

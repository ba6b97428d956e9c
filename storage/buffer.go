package storage

import (
	"context"

	"github.com/intellect4all/pagedb/record"
)

// Buffer is a typed in-memory handle to one page: the backing file, the
// page index, the decoded payload, and whether the in-memory copy has
// diverged from disk. While a buffer is resident its payload is the
// authoritative copy of the page.
type Buffer[M any] struct {
	file      Filelike
	pageIndex uint32
	data      M
	dirty     bool
}

// newBuffer wraps a payload that has never been written; it starts dirty.
func newBuffer[M any](file Filelike, pageIndex uint32, data M) *Buffer[M] {
	return &Buffer[M]{file: file, pageIndex: pageIndex, data: data, dirty: true}
}

// readBufferFromFile loads and decodes the page at pageIndex.
func readBufferFromFile[M any](ctx context.Context, file Filelike, pageIndex uint32) (*Buffer[M], error) {
	b := &Buffer[M]{file: file, pageIndex: pageIndex}
	if err := ReadPageAt(ctx, file, &b.data, pageIndex); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteToFile persists the payload to its page slot. No-op when clean.
func (b *Buffer[M]) WriteToFile(ctx context.Context) error {
	if !b.dirty {
		return nil
	}
	if err := WritePageAt(ctx, b.file, &b.data, b.pageIndex); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// Get returns the payload for reading.
func (b *Buffer[M]) Get() *M {
	return &b.data
}

// GetMut returns the payload for mutation and unconditionally marks the
// buffer dirty.
func (b *Buffer[M]) GetMut() *M {
	b.dirty = true
	return &b.data
}

// WouldOverflow reports whether growing the payload by addlSize encoded
// bytes would no longer fit the page frame.
func (b *Buffer[M]) WouldOverflow(addlSize int) bool {
	return WouldOverflow(record.EncodedSize(&b.data), addlSize)
}

func (b *Buffer[M]) PageIndex() uint32 {
	return b.pageIndex
}

func (b *Buffer[M]) IsDirty() bool {
	return b.dirty
}

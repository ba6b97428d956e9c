// Package storage implements the disk-backed core: fixed-size page
// frames, typed page buffers, the sharded LRU buffer pool, tables, and
// the concurrent B+ tree that binds them together.
package storage

import (
	"context"
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/intellect4all/pagedb/common"
)

// Byte format of each page frame:
//  1. payload size: u16, big endian.
//  2. payload: msgpack message, to end of payload.
//  3. zero padding to PageSize.
// Every page slot in a file is exactly PageSize bytes.

const (
	// PageSize is the fixed byte size of every page frame. Must stay
	// below 1<<16 so the length header fits.
	PageSize = 4096

	pageHeaderSize = 2

	// overflowMargin pads growth checks because the exact encoded size
	// after an append is unknown without re-encoding; it must cover one
	// additional field header for the largest scalar stored in a node.
	overflowMargin = 5
)

// WouldOverflow reports whether a payload currently encoding to
// currentSize bytes can no longer absorb addlSize more bytes inside one
// page frame.
func WouldOverflow(currentSize, addlSize int) bool {
	return pageHeaderSize+currentSize+addlSize+overflowMargin >= PageSize
}

func marshalPage(msg any) ([]byte, error) {
	body, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, common.Wrap(common.Internal, err, "unable to encode page payload")
	}
	if len(body) > PageSize-pageHeaderSize {
		return nil, common.OutOfBoundsf(
			"payload of size %d does not fit in a page frame of size %d", len(body), PageSize)
	}
	frame := make([]byte, PageSize)
	binary.BigEndian.PutUint16(frame, uint16(len(body)))
	copy(frame[pageHeaderSize:], body)
	return frame, nil
}

func unmarshalPage(frame []byte, out any) error {
	if len(frame) < pageHeaderSize {
		return common.OutOfBoundsf("page frame of size %d has no length header", len(frame))
	}
	size := int(binary.BigEndian.Uint16(frame))
	if size > PageSize-pageHeaderSize {
		return common.OutOfBoundsf("page payload length %d exceeds frame capacity", size)
	}
	if err := msgpack.Unmarshal(frame[pageHeaderSize:pageHeaderSize+size], out); err != nil {
		return common.Wrap(common.DataLoss, err, "unable to decode page payload")
	}
	return nil
}

// ReadPageAt decodes the page at the given index into out. Reading past
// the end of the file is OutOfBounds; a torn page is DataLoss.
func ReadPageAt(ctx context.Context, f Filelike, out any, index uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame := make([]byte, PageSize)
	n, err := f.ReadAt(frame, int64(index)*PageSize)
	if n == 0 && err != nil {
		return common.Wrap(common.OutOfBounds, err, "page %d is beyond the end of the file", index)
	}
	if n < PageSize {
		return common.DataLossf("short read of page %d: %d of %d bytes", index, n, PageSize)
	}
	return unmarshalPage(frame, out)
}

// WritePageAt encodes msg into the page slot at the given index.
func WritePageAt(ctx context.Context, f Filelike, msg any, index uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := marshalPage(msg)
	if err != nil {
		return err
	}
	n, err := f.WriteAt(frame, int64(index)*PageSize)
	if err != nil {
		return common.Wrap(common.DataLoss, err, "unable to write page %d", index)
	}
	if n < PageSize {
		return common.DataLossf("short write of page %d: %d of %d bytes", index, n, PageSize)
	}
	return nil
}

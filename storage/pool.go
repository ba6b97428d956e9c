package storage

import (
	"container/list"
	"context"
	"log/slog"
	"sync"

	"github.com/intellect4all/pagedb/common"
	"github.com/intellect4all/pagedb/record"
)

const (
	// shardCount shards the pool to lower lock contention.
	shardCount = 16

	// shardSize is the resident-page capacity of each shard before the
	// least recently used entry is evicted. Total resident pages are
	// bounded by shardCount * shardSize.
	shardSize = 16
)

// PageHandle is the shared, lock-guarded handle to one resident page.
// Callers must hold the read lock around Get and the write lock around
// GetMut; the handle stays valid after eviction but its payload is no
// longer authoritative once evicted.
type PageHandle struct {
	mu  sync.RWMutex
	buf *Buffer[record.Node]
}

func (h *PageHandle) Lock()    { h.mu.Lock() }
func (h *PageHandle) Unlock()  { h.mu.Unlock() }
func (h *PageHandle) RLock()   { h.mu.RLock() }
func (h *PageHandle) RUnlock() { h.mu.RUnlock() }

// Get returns the node payload. The caller must hold at least the read lock.
func (h *PageHandle) Get() *record.Node {
	return h.buf.Get()
}

// GetMut returns the node payload for mutation and marks the page
// dirty. The caller must hold the write lock.
func (h *PageHandle) GetMut() *record.Node {
	return h.buf.GetMut()
}

func (h *PageHandle) WouldOverflow(addlSize int) bool {
	return h.buf.WouldOverflow(addlSize)
}

func (h *PageHandle) PageIndex() uint32 {
	return h.buf.PageIndex()
}

type poolKey struct {
	tableID   uint32
	pageIndex uint32
}

type poolEntry struct {
	key    poolKey
	handle *PageHandle
}

type poolShard struct {
	mu      sync.Mutex
	entries map[poolKey]*list.Element
	// lru orders entries by recency; front is most recently used.
	lru *list.List
}

// get returns and promotes the entry for key, or nil on miss. The shard
// lock must be held.
func (s *poolShard) get(key poolKey) *PageHandle {
	elem, ok := s.entries[key]
	if !ok {
		return nil
	}
	s.lru.MoveToFront(elem)
	return elem.Value.(*poolEntry).handle
}

// evict writes back and drops the least recently used entry. Because
// any would-be user must first pass the shard lock we hold, the handle
// lock below only waits on callers that already hold the handle. The
// entry stays resident if the write-back fails.
func (s *poolShard) evict(ctx context.Context) error {
	elem := s.lru.Back()
	if elem == nil {
		return common.Internalf("evicting from an empty buffer pool shard")
	}
	entry := elem.Value.(*poolEntry)
	entry.handle.mu.Lock()
	if entry.handle.buf.IsDirty() {
		slog.Debug("evicting dirty page",
			"table", entry.key.tableID, "page", entry.key.pageIndex)
	}
	err := entry.handle.buf.WriteToFile(ctx)
	entry.handle.mu.Unlock()
	if err != nil {
		return err
	}
	s.lru.Remove(elem)
	delete(s.entries, entry.key)
	return nil
}

// insert adds a buffer under key, evicting first when the shard is
// full. The shard lock must be held and key must not be resident.
func (s *poolShard) insert(ctx context.Context, key poolKey, buf *Buffer[record.Node]) (*PageHandle, error) {
	if len(s.entries) >= shardSize {
		if err := s.evict(ctx); err != nil {
			return nil, err
		}
	}
	handle := &PageHandle{buf: buf}
	s.entries[key] = s.lru.PushFront(&poolEntry{key: key, handle: handle})
	return handle, nil
}

// BufferPool caches node pages across every table of a database and
// enforces at most one authoritative in-memory copy per
// (table, page index).
type BufferPool struct {
	shards [shardCount]poolShard
}

func NewBufferPool() *BufferPool {
	p := &BufferPool{}
	for i := range p.shards {
		p.shards[i].entries = make(map[poolKey]*list.Element, shardSize)
		p.shards[i].lru = list.New()
	}
	return p
}

// shardIdx pairs the table id and page index with the Cantor pairing
// function so shard choice doesn't correlate with table boundaries.
func shardIdx(key poolKey) int {
	a, b := uint64(key.tableID), uint64(key.pageIndex)
	return int(((a+b)*(a+b+1)/2 + b) % shardCount)
}

// NewNextForTable claims the table's next page index and returns a
// handle to a fresh, dirty, empty node page at that index.
func (p *BufferPool) NewNextForTable(ctx context.Context, table *Table) (*PageHandle, error) {
	key := poolKey{tableID: table.ID(), pageIndex: table.allocatePageIndex()}
	buf := newBuffer(table.file, key.pageIndex, record.Node{})
	shard := &p.shards[shardIdx(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.insert(ctx, key, buf)
}

// ReadFromTable returns the resident handle for the page, loading it
// from the table's file on miss.
func (p *BufferPool) ReadFromTable(ctx context.Context, table *Table, pageIndex uint32) (*PageHandle, error) {
	key := poolKey{tableID: table.ID(), pageIndex: pageIndex}
	shard := &p.shards[shardIdx(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if handle := shard.get(key); handle != nil {
		return handle, nil
	}
	buf, err := readBufferFromFile[record.Node](ctx, table.file, pageIndex)
	if err != nil {
		return nil, err
	}
	return shard.insert(ctx, key, buf)
}

// Flush drains every shard through repeated eviction so all dirty pages
// reach disk. Intended for tests and shutdown.
func (p *BufferPool) Flush(ctx context.Context) error {
	for i := range p.shards {
		shard := &p.shards[i]
		shard.mu.Lock()
		for len(shard.entries) > 0 {
			if err := shard.evict(ctx); err != nil {
				shard.mu.Unlock()
				return err
			}
		}
		shard.mu.Unlock()
	}
	return nil
}

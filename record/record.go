// Package record defines the messages stored inside page frames and the
// rows exchanged with clients. Everything here is serialized with
// msgpack; the struct tags are the wire names and must stay stable for
// on-disk files to remain readable across releases.
package record

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ColumnType enumerates the value types a column can hold.
type ColumnType int32

const (
	ColumnTypeInt ColumnType = iota
	ColumnTypeUint
)

func (t ColumnType) String() string {
	switch t {
	case ColumnTypeInt:
		return "int"
	case ColumnTypeUint:
		return "uint"
	}
	return "unknown"
}

// ColumnSchema names and types a single column.
type ColumnSchema struct {
	Name string     `msgpack:"name"`
	Type ColumnType `msgpack:"type"`
}

// TableSchema describes one table: the key column first, then the rest.
type TableSchema struct {
	Key     *ColumnSchema   `msgpack:"key"`
	Columns []*ColumnSchema `msgpack:"columns"`
}

// DatabaseSchema describes a database: the primary table plus the
// columns that get their own secondary-index tables.
type DatabaseSchema struct {
	Table            *TableSchema    `msgpack:"table"`
	SecondaryIndexes []*ColumnSchema `msgpack:"secondary_indexes"`
}

// Value is a single column value. Exactly one field is set.
type Value struct {
	Int  *int64  `msgpack:"int,omitempty"`
	Uint *uint32 `msgpack:"uint,omitempty"`
}

func IntValue(v int64) Value {
	return Value{Int: &v}
}

func UintValue(v uint32) Value {
	return Value{Uint: &v}
}

func (v Value) Equal(o Value) bool {
	switch {
	case v.Int != nil && o.Int != nil:
		return *v.Int == *o.Int
	case v.Uint != nil && o.Uint != nil:
		return *v.Uint == *o.Uint
	}
	return v.Int == nil && v.Uint == nil && o.Int == nil && o.Uint == nil
}

func (v Value) String() string {
	switch {
	case v.Int != nil:
		return fmt.Sprintf("%d", *v.Int)
	case v.Uint != nil:
		return fmt.Sprintf("%d", *v.Uint)
	}
	return "<unset>"
}

// Column is a named value in a client-facing row.
type Column struct {
	Name  string `msgpack:"name"`
	Value Value  `msgpack:"value"`
}

// Row is the client-facing row shape.
type Row struct {
	Columns []Column `msgpack:"columns"`
}

// InternalRow is the stored row shape: values only, ordered per the
// table schema (key column first).
type InternalRow struct {
	Values []Value `msgpack:"values"`
}

func (r InternalRow) Clone() InternalRow {
	return InternalRow{Values: append([]Value(nil), r.Values...)}
}

// InternalNode holds separator keys and child page indices. For all
// keys k in the subtree under Children[i] with i < len(Keys),
// k < Keys[i]. When there is one more child than keys, the subtree
// under the last child holds k >= the last key; the left half of an
// internal split keeps as many keys as children, so every child of
// such a node holds keys below its own separator.
type InternalNode struct {
	Keys     []uint32 `msgpack:"keys"`
	Children []uint32 `msgpack:"children"`
}

// LeafNode holds parallel ordered keys and rows. The sibling links are
// written on split only and are not maintained by deletes.
type LeafNode struct {
	Keys     []uint32      `msgpack:"keys"`
	Rows     []InternalRow `msgpack:"rows"`
	NextLeaf uint32        `msgpack:"next,omitempty"`
	PrevLeaf uint32        `msgpack:"prev,omitempty"`
}

// Node is one B+ tree node; exactly one of Internal or Leaf is set.
// ParentIndex is informational, the tree is never walked bottom-up.
type Node struct {
	SelfIndex   uint32        `msgpack:"self"`
	ParentIndex uint32        `msgpack:"parent"`
	Internal    *InternalNode `msgpack:"internal,omitempty"`
	Leaf        *LeafNode     `msgpack:"leaf,omitempty"`
}

func (n *Node) Clone() *Node {
	c := &Node{SelfIndex: n.SelfIndex, ParentIndex: n.ParentIndex}
	if n.Internal != nil {
		c.Internal = &InternalNode{
			Keys:     append([]uint32(nil), n.Internal.Keys...),
			Children: append([]uint32(nil), n.Internal.Children...),
		}
	}
	if n.Leaf != nil {
		c.Leaf = &LeafNode{
			Keys:     append([]uint32(nil), n.Leaf.Keys...),
			NextLeaf: n.Leaf.NextLeaf,
			PrevLeaf: n.Leaf.PrevLeaf,
		}
		c.Leaf.Rows = make([]InternalRow, len(n.Leaf.Rows))
		for i, r := range n.Leaf.Rows {
			c.Leaf.Rows[i] = r.Clone()
		}
	}
	return c
}

// TableMetadata is the payload of page 0 of every table file.
type TableMetadata struct {
	Name          string       `msgpack:"name"`
	ID            uint32       `msgpack:"id"`
	Schema        *TableSchema `msgpack:"schema"`
	RootPageIndex uint32       `msgpack:"root"`
	NextPageIndex uint32       `msgpack:"next"`
}

// QueryResults is the payload of one results-stream page. Rows is only
// populated by stages that emit full rows (Select).
type QueryResults struct {
	Keys []uint32 `msgpack:"keys"`
	Rows []Row    `msgpack:"rows,omitempty"`
}

// EncodedSize reports the msgpack-encoded size of msg in bytes. It is
// used to gate page growth; a message that cannot encode reports 0 and
// fails loudly at write time instead.
func EncodedSize(msg any) int {
	b, err := msgpack.Marshal(msg)
	if err != nil {
		return 0
	}
	return len(b)
}

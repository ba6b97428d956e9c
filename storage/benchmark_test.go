package storage

import (
	"context"
	"math/rand"
	"testing"

	"github.com/intellect4all/pagedb/record"
)

// Key patterns mirror the access distributions worth measuring:
// sequential append-style loads and uniformly random ones.

func sequentialKeys(n int) []uint32 {
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = uint32(i)
	}
	return keys
}

func randomKeys(n int) []uint32 {
	rng := rand.New(rand.NewSource(1))
	keys := make([]uint32, n)
	for i, k := range rng.Perm(n) {
		keys[i] = uint32(k)
	}
	return keys
}

func benchmarkInsert(b *testing.B, keys func(int) []uint32) {
	ctx := context.Background()
	pool := NewBufferPool()
	table, err := CreateTable(ctx, NewMemFile(), pool, "bench", 0,
		&record.TableSchema{Key: &record.ColumnSchema{Name: "Key", Type: record.ColumnTypeInt}})
	if err != nil {
		b.Fatalf("CreateTable failed: %v", err)
	}
	ks := keys(b.N)
	b.ResetTimer()
	for _, k := range ks {
		if err := table.Insert(ctx, k, testRow(int64(k))); err != nil {
			b.Fatalf("Insert(%d) failed: %v", k, err)
		}
	}
}

func BenchmarkInsertSequential(b *testing.B) {
	benchmarkInsert(b, sequentialKeys)
}

func BenchmarkInsertRandom(b *testing.B) {
	benchmarkInsert(b, randomKeys)
}

func BenchmarkReadRandom(b *testing.B) {
	ctx := context.Background()
	pool := NewBufferPool()
	table, err := CreateTable(ctx, NewMemFile(), pool, "bench", 0,
		&record.TableSchema{Key: &record.ColumnSchema{Name: "Key", Type: record.ColumnTypeInt}})
	if err != nil {
		b.Fatalf("CreateTable failed: %v", err)
	}
	const total = 10000
	for i := int64(0); i < total; i++ {
		if err := table.Insert(ctx, uint32(i), testRow(i)); err != nil {
			b.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}
	rng := rand.New(rand.NewSource(2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := uint32(rng.Intn(total))
		if _, err := table.ReadRow(ctx, key); err != nil {
			b.Fatalf("ReadRow(%d) failed: %v", key, err)
		}
	}
}

package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"marginalia/internal/domain"
)

func seedStore(b *testing.B, n int) *Store {
	b.Helper()
	s, err := Open(context.Background(), Options{Path: filepath.Join(b.TempDir(), "bench.db")})
	if err != nil {
		b.Fatalf("failed to open store: %v", err)
	}
	b.Cleanup(func() { s.Close() })

	for i := range n {
		e := &domain.IndexedEntry{
			ID:       domain.NewContentID(),
			Name:     fmt.Sprintf("file-%05d.jpg", i),
			Location: fmt.Sprintf("/photos/%03d", i%100),
			Kind:     domain.KindImage,
		}
		if err := s.Insert(context.Background(), e); err != nil {
			b.Fatalf("insert failed: %v", err)
		}
		if i%10 == 0 {
			if err := s.AddTags(context.Background(), e.ID, "sample"); err != nil {
				b.Fatalf("tag failed: %v", err)
			}
		}
	}
	return s
}

// BenchmarkQueryRecursive measures a tagged recursive query over a seeded store
func BenchmarkQueryRecursive(b *testing.B) {
	s := seedStore(b, 2000)
	q := domain.EntryQuery{Location: "/photos", Recursive: true, Tags: []string{"sample"}, Limit: 50}

	b.ResetTimer()
	for b.Loop() {
		if _, err := s.Query(context.Background(), q); err != nil {
			b.Fatalf("query failed: %v", err)
		}
	}
}

// BenchmarkUpdateName measures one captured rename per iteration
func BenchmarkUpdateName(b *testing.B) {
	s := seedStore(b, 1)
	ptrs, err := s.Pointers(context.Background())
	if err != nil {
		b.Fatalf("pointers failed: %v", err)
	}
	id := ptrs[0].ID

	b.ResetTimer()
	i := 0
	for b.Loop() {
		i++
		if _, err := s.UpdateName(context.Background(), id, fmt.Sprintf("renamed-%d.jpg", i), domain.OriginUser); err != nil {
			b.Fatalf("rename failed: %v", err)
		}
	}
}

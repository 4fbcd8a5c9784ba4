package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/recommend"
)

func TestFileStoreRecordDeduplicates(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.Record(ctx, "alice", testRecommendations())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 inserted, got %d", n)
	}

	n, err = s.Record(ctx, "alice", testRecommendations())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected duplicates to be skipped, got %d", n)
	}

	n, err = s.Record(ctx, "bob", &recommend.Recommendations{Items: testRecommendations().Items[:1]})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 insert for another candidate, got %d %v", n, err)
	}

	seen, err := s.Seen(ctx, "alice")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !reflect.DeepEqual(seen, []string{"101", "102", "103"}) {
		t.Fatalf("unexpected seen list: %v", seen)
	}

	seen, err = s.Seen(ctx, "carol")
	if err != nil || len(seen) != 0 {
		t.Fatalf("expected nothing for unknown candidate, got %v %v", seen, err)
	}
}

func TestFileStoreRejectsAnonymousCandidate(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Record(context.Background(), "", testRecommendations())
	if !errors.Is(err, ErrUnknownCandidate) {
		t.Fatalf("expected ErrUnknownCandidate, got %v", err)
	}

	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestFileStoreInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Seen(context.Background(), "alice"); err == nil {
		t.Fatalf("expected error for invalid history file")
	}
}

func TestFileStoreConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := NewFileStore(path)
			if err != nil {
				errs <- err
				return
			}
			recs := &recommend.Recommendations{Items: []*recommend.Recommendation{
				{Posting: &catalog.Posting{ID: string(rune('a' + i)), CompanyID: "1"}},
			}}
			if _, err := s.Record(context.Background(), "alice", recs); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	s, _ := NewFileStore(path)
	seen, err := s.Seen(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 entries after concurrent writes, got %d", len(seen))
	}
}

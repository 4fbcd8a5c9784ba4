package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/spigell/job-recommender/internal/recommend"
)

const lockRetryDelay = 100 * time.Millisecond

// FileStore keeps the recommendation history in a JSON file. Concurrent processes are
// serialized with an advisory lock next to the file.
type FileStore struct {
	path string
	now  func() time.Time
}

type history struct {
	Entries []*historyEntry `json:"entries"`
}

type historyEntry struct {
	ID         string    `json:"id"`
	Candidate  string    `json:"candidate"`
	JobID      string    `json:"job_id"`
	CompanyID  string    `json:"company_id"`
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history file path is required")
	}
	return &FileStore{path: path, now: time.Now}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Record(ctx context.Context, candidate string, recs *recommend.Recommendations) (int, error) {
	if candidate == "" {
		return 0, ErrUnknownCandidate
	}

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return 0, err
	}
	defer unlock()

	h, err := s.read()
	if err != nil {
		return 0, err
	}

	known := make(map[string]struct{}, len(h.Entries))
	for _, e := range h.Entries {
		known[entryKey(e.Candidate, e.JobID, e.CompanyID)] = struct{}{}
	}

	inserted := 0
	for _, r := range recs.Items {
		key := entryKey(candidate, r.Posting.ID, r.Posting.CompanyID)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}

		h.Entries = append(h.Entries, &historyEntry{
			ID:         uuid.NewString(),
			Candidate:  candidate,
			JobID:      r.Posting.ID,
			CompanyID:  r.Posting.CompanyID,
			Score:      r.Score,
			RecordedAt: s.now().UTC(),
		})
		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}

	if err := s.write(h); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *FileStore) Seen(ctx context.Context, candidate string) ([]string, error) {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	h, err := s.read()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range h.Entries {
		if e.Candidate == candidate {
			ids = append(ids, e.JobID)
		}
	}
	return ids, nil
}

func (s *FileStore) lock(ctx context.Context, shared bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	l := flock.New(s.path + ".lock")

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = l.TryRLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = l.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock history file %s: %w", s.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("history file %s is locked by another process", s.path)
	}

	return func() { _ = l.Unlock() }, nil
}

func (s *FileStore) read() (*history, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &history{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	h := &history{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("invalid history file %s: %w", s.path, err)
	}
	return h, nil
}

// write replaces the history file atomically.
func (s *FileStore) write(h *history) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary history file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

func entryKey(candidate, jobID, companyID string) string {
	return candidate + "\x00" + jobID + "\x00" + companyID
}

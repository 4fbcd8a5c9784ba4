package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-recommender/internal/catalog"
	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/store"
)

func testRecommendations() *recommend.Recommendations {
	return &recommend.Recommendations{Items: []*recommend.Recommendation{
		{
			Posting: &catalog.Posting{ID: "101", CompanyID: "1", Title: "Go Developer", KeySkills: "Go | SQL", ExperienceText: "2 - 5 yrs"},
			Score:   0.75,
			Company: &recommend.Company{ID: "1", Name: "Acme"},
		},
		{
			Posting: &catalog.Posting{ID: "102", CompanyID: "2", Title: "Data Analyst", KeySkills: "Excel", ExperienceText: "0 - 1 yrs"},
			Score:   0.5,
		},
	}}
}

func TestPrintRecommendations(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := printRecommendations(&buf, testRecommendations()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "Acme") || !strings.Contains(lines[1], "0.7500") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "102") || !strings.Contains(lines[2], " 2 ") {
		t.Fatalf("expected company id fallback in second row: %q", lines[2])
	}
}

func TestPrintPostings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := printPostings(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "No postings found!" {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	if err := printPostings(&buf, []*catalog.Posting{testRecommendations().Items[0].Posting}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Go | SQL") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestHandleAction(t *testing.T) {
	t.Parallel()

	excludeFile := filepath.Join(t.TempDir(), "exclude.json")
	config := &Config{ExcludeFile: excludeFile}
	recs := testRecommendations()

	if err := handleAction(PromptDone, &bytes.Buffer{}, zap.NewNop(), config, recs); err != errExit {
		t.Fatalf("expected errExit, got %v", err)
	}

	var buf bytes.Buffer
	if err := handleAction(PromptReportByCompany, &buf, zap.NewNop(), config, recs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Acme (1)") {
		t.Fatalf("expected report keyed by company, got %s", buf.String())
	}

	if err := handleAction(PromptAppendToExcludeFile, &buf, zap.NewNop(), config, recs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	excluded, err := recommend.GetExcludedPostingsFromFile(excludeFile)
	if err != nil {
		t.Fatal(err)
	}
	if got := excluded.PostingIDs(); len(got) != 2 || got[0] != "101" {
		t.Fatalf("unexpected exclude file content: %v", got)
	}

	if err := handleAction("nope", &buf, zap.NewNop(), config, recs); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestValidateExperience(t *testing.T) {
	t.Parallel()

	for input, ok := range map[string]bool{"0": true, " 7 ": true, "-1": false, "two": false, "": false} {
		if err := validateExperience(input); (err == nil) != ok {
			t.Fatalf("validateExperience(%q) = %v", input, err)
		}
	}
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	config := &Config{
		History:   &HistoryConfig{Backend: store.BackendNone},
		Companies: map[string]*CompanyConfig{"1": {Name: "Acme", Domain: "IT"}},
	}

	backend, err := openStore(config, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := backend.recorder.(store.Nop); !ok {
		t.Fatalf("expected a no-op recorder, got %T", backend.recorder)
	}
	dir, ok := backend.directory.(store.StaticDirectory)
	if !ok || dir["1"].Name != "Acme" || dir["1"].ID != "1" {
		t.Fatalf("unexpected directory: %#v", backend.directory)
	}

	config.History = &HistoryConfig{Backend: "File", File: filepath.Join(t.TempDir(), "history.json")}
	backend, err = openStore(config, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fs, ok := backend.recorder.(*store.FileStore)
	if !ok {
		t.Fatalf("expected a file store, got %T", backend.recorder)
	}
	if fs.Path() != config.History.File {
		t.Fatalf("unexpected history path: %s", fs.Path())
	}

	config.History = &HistoryConfig{Backend: "redis"}
	if _, err := openStore(config, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

type failingRecorder struct {
	calls int
}

func (r *failingRecorder) Record(context.Context, string, *recommend.Recommendations) (int, error) {
	r.calls++
	return 0, errors.New("connection refused")
}

func (r *failingRecorder) Seen(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

type failingDirectory struct{}

func (failingDirectory) Companies(context.Context, []string) (map[string]recommend.Company, error) {
	return nil, errors.New("relation \"companies\" does not exist")
}

func TestDeliverPrintsDespiteCollaboratorFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	recorder := &failingRecorder{}
	backend := &historyBackend{recorder: recorder, directory: failingDirectory{}}

	recs := testRecommendations()
	recs.Items[0].Company = nil

	var buf bytes.Buffer
	if err := deliver(context.Background(), &buf, backend, "alice", recs, zap.New(core)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected the table to be printed, got %q", buf.String())
	}
	if recorder.calls != 1 {
		t.Fatalf("expected one record attempt, got %d", recorder.calls)
	}
	if logs.FilterMessage("company details are not available").Len() != 1 {
		t.Fatalf("expected a warning about company details")
	}
	if logs.FilterMessage("recording recommendations failed").Len() != 1 {
		t.Fatalf("expected a warning about recording")
	}
}

func TestDeliverEmptyResult(t *testing.T) {
	t.Parallel()

	recorder := &failingRecorder{}
	backend := &historyBackend{recorder: recorder, directory: store.StaticDirectory{}}

	var buf bytes.Buffer
	if err := deliver(context.Background(), &buf, backend, "alice", &recommend.Recommendations{}, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != noRecommendationsMsg {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if recorder.calls != 0 {
		t.Fatalf("expected nothing to be recorded for an empty result")
	}
}

func TestOpenStoreFallsBackWithoutDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	core, logs := observer.New(zapcore.WarnLevel)
	config := &Config{
		History:   &HistoryConfig{Backend: store.BackendPostgres},
		Companies: map[string]*CompanyConfig{"1": {Name: "Acme"}},
	}

	backend := openStoreOrFallback(config, zap.New(core))
	if _, ok := backend.recorder.(store.Nop); !ok {
		t.Fatalf("expected a no-op recorder, got %T", backend.recorder)
	}
	if dir, ok := backend.directory.(store.StaticDirectory); !ok || dir["1"].Name != "Acme" {
		t.Fatalf("expected the static directory, got %#v", backend.directory)
	}
	if logs.FilterMessage("history store is not available, recommendations will not be recorded").Len() != 1 {
		t.Fatalf("expected a warning about the history store")
	}
	backend.Close()
}

package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JOB_RECOMMENDER_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Env: "JOB_RECOMMENDER_TEST_SECRET", Value: "inline"}, want: "from-file"},
		{name: "env beats inline", src: Source{Env: "JOB_RECOMMENDER_TEST_SECRET", Value: "inline"}, want: "from-env"},
		{name: "inline", src: Source{Value: " inline "}, want: "inline"},
		{name: "unset env falls back to inline", src: Source{Env: "JOB_RECOMMENDER_TEST_UNSET", Value: "inline"}, want: "inline"},
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, wantErr: "reading api key from file"},
		{name: "empty file", src: Source{File: emptyFile}, wantErr: "is empty"},
		{name: "nothing configured", src: Source{Name: "dsn", Env: "JOB_RECOMMENDER_TEST_UNSET"}, wantErr: "dsn is not configured (set JOB_RECOMMENDER_TEST_UNSET)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

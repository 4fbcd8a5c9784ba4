package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/catalog"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testProfile() *ai.Profile {
	return &ai.Profile{Skills: "Go, PostgreSQL", Title: "Backend Developer", Experience: 4}
}

func testPosting() *catalog.Posting {
	return &catalog.Posting{
		ID:             "101",
		CompanyID:      "1",
		Title:          "Go Developer",
		KeySkills:      "Go | Kubernetes",
		ExperienceText: "3 - 6 yrs",
		Experience:     catalog.ExperienceRange{Min: 3, Max: 6},
	}
}

func TestMatcherEvaluate(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": true, "score": 0.9, "reason": "Matches skills"}`}
	matcher := NewMatcher(stub, 0.5, 0, zap.NewNop())

	assessment, err := matcher.Evaluate(context.Background(), testProfile(), testPosting())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !assessment.Fit {
		t.Fatalf("expected fit to be true")
	}
	if assessment.Score != 0.9 {
		t.Fatalf("expected score 0.9, got %v", assessment.Score)
	}
	if assessment.Reason != "Matches skills" {
		t.Fatalf("unexpected reason: %s", assessment.Reason)
	}
	if assessment.Raw != stub.response {
		t.Fatalf("expected raw response to be kept")
	}

	if stub.lastSystem != systemPrompt || strings.TrimSpace(stub.lastSystem) == "" {
		t.Fatalf("expected embedded system prompt to be sent")
	}
	for _, want := range []string{`"skills": "Go, PostgreSQL"`, `"experience_years": 4`, `"job_title": "Go Developer"`, `"key_skills": "Go | Kubernetes"`} {
		if !strings.Contains(stub.lastMessage, want) {
			t.Fatalf("expected message to contain %q, got: %s", want, stub.lastMessage)
		}
	}
}

func TestMatcherEvaluateAppliesThreshold(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": true, "score": 0.3, "reason": "Too junior"}`}
	matcher := NewMatcher(stub, 0.5, 0, zap.NewNop())

	assessment, err := matcher.Evaluate(context.Background(), testProfile(), testPosting())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.Fit {
		t.Fatalf("expected fit to be false due to threshold")
	}
}

func TestMatcherEvaluateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stub    *stubGenerator
		profile *ai.Profile
		posting *catalog.Posting
	}{
		{name: "no profile", stub: &stubGenerator{}, posting: testPosting()},
		{name: "no posting", stub: &stubGenerator{}, profile: testProfile()},
		{name: "generator failure", stub: &stubGenerator{err: errors.New("quota")}, profile: testProfile(), posting: testPosting()},
		{name: "not json", stub: &stubGenerator{response: "I think it fits"}, profile: testProfile(), posting: testPosting()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			matcher := NewMatcher(tt.stub, 0, 0, nil)
			if _, err := matcher.Evaluate(context.Background(), tt.profile, tt.posting); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseResponseHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"fit\": \"yes\", \"score\": \"0.8\", \"reason\": \"Looks good\"}\n```"
	assessment, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !assessment.Fit {
		t.Fatalf("expected fit true")
	}
	if assessment.Score != 0.8 {
		t.Fatalf("expected score 0.8, got %v", assessment.Score)
	}
	if assessment.Reason != "Looks good" {
		t.Fatalf("unexpected reason: %s", assessment.Reason)
	}
}

func TestParseResponseDefaultsMissingScore(t *testing.T) {
	assessment, err := parseResponse(`{"fit": false, "reason": ["no overlap"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.Score != 0 {
		t.Fatalf("expected zero score, got %v", assessment.Score)
	}
	if assessment.Reason != `["no overlap"]` {
		t.Fatalf("unexpected reason: %s", assessment.Reason)
	}
}

package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/CRISUM/MeetingTool/internal/config"
	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/internal/task"
)

func newTestSummarizer(t *testing.T, keys []string, generate func(ctx context.Context, apiKey, prompt string) (string, error)) *implSummarizer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Gemini.APIKeys = keys
	cfg.Gemini.Model = "gemini-2.5-flash"
	cfg.Pipeline.MaxAPIRetries = 3
	cfg.Paths.Prompts = t.TempDir()

	s := New(cfg, logger.New("error")).(*implSummarizer)
	s.backoff = time.Millisecond
	s.generate = generate
	return s
}

func TestSummarizeRendersTranscriptIntoPrompt(t *testing.T) {
	var gotPrompt string
	s := newTestSummarizer(t, []string{"k1"}, func(ctx context.Context, apiKey, prompt string) (string, error) {
		gotPrompt = prompt
		return "## Minutes", nil
	})

	out, err := s.Summarize(context.Background(), "alice: we ship friday")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if out != "## Minutes" {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(gotPrompt, "alice: we ship friday") {
		t.Errorf("prompt missing transcript: %q", gotPrompt)
	}
	if strings.Contains(gotPrompt, "{transcript}") {
		t.Error("placeholder not substituted")
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	s := newTestSummarizer(t, []string{"k1"}, func(ctx context.Context, apiKey, prompt string) (string, error) {
		t.Fatal("model should not be called")
		return "", nil
	})

	_, err := s.Summarize(context.Background(), "   \n  ")
	if !errors.Is(err, task.ErrInput) {
		t.Errorf("error = %v, want input kind", err)
	}
}

func TestSummarizeRotatesKeysOnRateLimit(t *testing.T) {
	var usedKeys []string
	s := newTestSummarizer(t, []string{"k1", "k2", "k3"}, func(ctx context.Context, apiKey, prompt string) (string, error) {
		usedKeys = append(usedKeys, apiKey)
		if apiKey != "k3" {
			return "", fmt.Errorf("googleapi: Error 429: RESOURCE_EXHAUSTED")
		}
		return "summary", nil
	})

	out, err := s.Summarize(context.Background(), "short transcript")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if out != "summary" {
		t.Errorf("got %q", out)
	}
	want := []string{"k1", "k2", "k3"}
	if len(usedKeys) != len(want) {
		t.Fatalf("used keys %v, want %v", usedKeys, want)
	}
	for i := range want {
		if usedKeys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, usedKeys[i], want[i])
		}
	}
}

func TestSummarizeRetriesThenFailsAsAPIError(t *testing.T) {
	calls := 0
	s := newTestSummarizer(t, []string{"k1"}, func(ctx context.Context, apiKey, prompt string) (string, error) {
		calls++
		return "", fmt.Errorf("connection reset")
	})

	_, err := s.Summarize(context.Background(), "short transcript")
	if !errors.Is(err, task.ErrAPI) {
		t.Fatalf("error = %v, want api kind", err)
	}
	if calls != 3 {
		t.Errorf("model called %d times, want 3", calls)
	}
}

func TestSummarizeNoKeysIsAuthError(t *testing.T) {
	s := newTestSummarizer(t, nil, nil)
	_, err := s.Summarize(context.Background(), "short transcript")
	if !errors.Is(err, task.ErrAuth) {
		t.Errorf("error = %v, want auth kind", err)
	}
}

func TestSummarizeCondensesLongTranscript(t *testing.T) {
	long := strings.Repeat("speaker one said something important here\n", 2000)
	if len(long) <= maxPromptChars {
		t.Fatal("fixture not long enough")
	}

	var prompts []string
	s := newTestSummarizer(t, []string{"k1"}, func(ctx context.Context, apiKey, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "condensed points", nil
	})

	if _, err := s.Summarize(context.Background(), long); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	// At least one extraction call per slice plus the final summary.
	if len(prompts) < 3 {
		t.Fatalf("got %d model calls, want condense passes plus final", len(prompts))
	}
	final := prompts[len(prompts)-1]
	if !strings.Contains(final, "condensed points") {
		t.Errorf("final prompt not built from condensed slices")
	}
	for _, p := range prompts {
		if len(p) > maxPromptChars+4096 {
			t.Errorf("prompt length %d exceeds budget", len(p))
		}
	}
}

func TestSummarizeMergedAttributesSources(t *testing.T) {
	var prompts []string
	s := newTestSummarizer(t, []string{"k1"}, func(ctx context.Context, apiKey, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "points", nil
	})

	out, err := s.SummarizeMerged(context.Background(), []NamedTranscript{
		{Name: "standup.wav", Text: "short update"},
		{Name: "retro.wav", Text: "longer retro discussion"},
	})
	if err != nil {
		t.Fatalf("SummarizeMerged() error = %v", err)
	}
	if out != "points" {
		t.Errorf("got %q", out)
	}

	// One extraction per recording, one merge call.
	if len(prompts) != 3 {
		t.Fatalf("got %d model calls, want 3", len(prompts))
	}
	merge := prompts[2]
	if !strings.Contains(merge, "standup.wav") || !strings.Contains(merge, "retro.wav") {
		t.Errorf("merge prompt missing source names: %q", merge)
	}
}

func TestSummarizeMergedEmpty(t *testing.T) {
	s := newTestSummarizer(t, []string{"k1"}, nil)
	if _, err := s.SummarizeMerged(context.Background(), nil); !errors.Is(err, task.ErrInput) {
		t.Errorf("error = %v, want input kind", err)
	}
}

func TestSplitTranscript(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		budget int
		want   int
	}{
		{"under budget", "a\nb\nc", 100, 1},
		{"splits at lines", strings.Repeat("0123456789\n", 10), 35, 4},
		{"empty", "", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slices := splitTranscript(tt.input, tt.budget)
			if len(slices) != tt.want {
				t.Errorf("got %d slices, want %d", len(slices), tt.want)
			}
			if strings.TrimRight(strings.Join(slices, "\n"), "\n") != strings.TrimRight(tt.input, "\n") {
				t.Errorf("slices do not reassemble the input")
			}
			for i, s := range slices {
				if len(s) > tt.budget {
					t.Errorf("slice %d length %d exceeds budget %d", i, len(s), tt.budget)
				}
			}
		})
	}
}

package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/CRISUM/MeetingTool/internal/config"
	"github.com/CRISUM/MeetingTool/internal/task"
)

func (s *implSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", task.NewError(task.ErrorInput, task.StageSummarizing, "transcript is empty", nil)
	}

	if len(transcript) > maxPromptChars {
		condensed, err := s.condense(ctx, transcript)
		if err != nil {
			return "", err
		}
		transcript = condensed
	}

	prompt := renderPrompt(s.cfg.LoadPrompt(config.PromptSingleSummary), "{transcript}", transcript)
	return s.callGemini(ctx, prompt)
}

func (s *implSummarizer) SummarizeMerged(ctx context.Context, transcripts []NamedTranscript) (string, error) {
	if len(transcripts) == 0 {
		return "", task.NewError(task.ErrorInput, task.StageSummarizing, "no transcripts to merge", nil)
	}

	// Condense each recording separately so every source contributes
	// within the prompt budget, then merge the point summaries.
	var b strings.Builder
	for i, tr := range transcripts {
		s.logger.Info(ctx, "[%d/%d] Condensing %s", i+1, len(transcripts), tr.Name)

		text := tr.Text
		if len(text) > maxPromptChars {
			condensed, err := s.condense(ctx, text)
			if err != nil {
				return "", err
			}
			text = condensed
		}

		prompt := renderPrompt(s.cfg.LoadPrompt(config.PromptChunkExtract), "{chunk}", text)
		points, err := s.callGemini(ctx, prompt)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "## %s\n\n%s\n\n", tr.Name, strings.TrimSpace(points))
	}

	prompt := renderPrompt(s.cfg.LoadPrompt(config.PromptMergeSummary), "{summaries}", b.String())
	return s.callGemini(ctx, prompt)
}

// condense reduces an over-budget transcript to a sequence of point
// summaries, one generation call per slice.
func (s *implSummarizer) condense(ctx context.Context, transcript string) (string, error) {
	slices := splitTranscript(transcript, maxPromptChars)
	s.logger.Info(ctx, "Transcript over budget, condensing %d slices", len(slices))

	var b strings.Builder
	for i, slice := range slices {
		prompt := renderPrompt(s.cfg.LoadPrompt(config.PromptChunkExtract), "{chunk}", slice)
		points, err := s.callGemini(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("condense slice %d/%d: %w", i+1, len(slices), err)
		}
		b.WriteString(strings.TrimSpace(points))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// callGemini sends one prompt to the model, rotating API keys on
// quota errors and retrying transient failures with backoff. Every
// failure it returns is an api-kind error: the transcript already
// exists on disk and the caller may retry summarization alone.
func (s *implSummarizer) callGemini(ctx context.Context, prompt string) (string, error) {
	if len(s.apiKeys) == 0 {
		return "", task.NewError(task.ErrorAuth, task.StageSummarizing, "no Gemini API keys configured", nil)
	}

	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff << (attempt - 1)
			s.logger.Warn(ctx, "Summarization attempt %d/%d failed, retrying in %s: %v",
				attempt, s.maxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return "", task.NewError(task.ErrorAPI, task.StageSummarizing, "summarization canceled", ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := s.tryAllKeys(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	return "", task.NewError(task.ErrorAPI, task.StageSummarizing, "summarization failed", lastErr)
}

// tryAllKeys makes one pass over the key ring, rotating on rate
// limits so a quota hit on one key does not fail the call.
func (s *implSummarizer) tryAllKeys(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for range s.apiKeys {
		key := s.apiKeys[s.currentKey]

		text, err := s.generate(ctx, key, prompt)
		if err != nil {
			if isRateLimited(err) {
				s.logger.Warn(ctx, "Key %d rate limited, rotating...", s.currentKey+1)
				s.rotateKey()
				lastErr = err
				continue
			}
			return "", err
		}

		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("empty response from Gemini")
		}
		return text, nil
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (s *implSummarizer) callModel(ctx context.Context, apiKey, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", nil
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text, nil
}

func (s *implSummarizer) rotateKey() {
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func renderPrompt(template, placeholder, value string) string {
	return strings.ReplaceAll(template, placeholder, value)
}

// splitTranscript cuts a transcript into slices of at most budget
// characters, breaking at line boundaries so no utterance is split
// mid-sentence.
func splitTranscript(transcript string, budget int) []string {
	lines := strings.Split(transcript, "\n")

	var slices []string
	var b strings.Builder
	for _, line := range lines {
		if b.Len() > 0 && b.Len()+len(line)+1 > budget {
			slices = append(slices, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		slices = append(slices, b.String())
	}
	return slices
}

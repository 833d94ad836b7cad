package summarizer

import (
	"context"
	"time"

	"github.com/CRISUM/MeetingTool/internal/config"
	"github.com/CRISUM/MeetingTool/internal/logger"
)

// maxPromptChars is the transcript budget for a single generation
// call. Longer transcripts are condensed slice by slice before the
// final summary pass.
const maxPromptChars = 28000

type implSummarizer struct {
	cfg        *config.Config
	apiKeys    []string
	currentKey int
	model      string
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger

	// generate is the model call, swappable in tests.
	generate func(ctx context.Context, apiKey, prompt string) (string, error)
}

// New creates a Summarizer that rotates through the configured Gemini
// API keys on quota errors.
func New(cfg *config.Config, log logger.Logger) Summarizer {
	s := &implSummarizer{
		cfg:        cfg,
		apiKeys:    cfg.Gemini.APIKeys,
		model:      cfg.Gemini.Model,
		maxRetries: cfg.Pipeline.MaxAPIRetries,
		backoff:    2 * time.Second,
		logger:     log,
	}
	s.generate = s.callModel
	return s
}

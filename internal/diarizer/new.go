package diarizer

import (
	"os"

	"github.com/CRISUM/MeetingTool/internal/config"
	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/pkg/executor"
)

type implDiarizer struct {
	helperPath string
	hfToken    string
	executor   executor.Executor
	logger     logger.Logger
}

// ResolveToken returns the HuggingFace token the diarizer will use:
// the configured value, or the HF_TOKEN environment variable as a
// fallback. Callers deciding whether diarization is possible must go
// through this rather than reading the config field directly.
func ResolveToken(cfg *config.Config) string {
	if cfg.Diarization.HFToken != "" {
		return cfg.Diarization.HFToken
	}
	return os.Getenv("HF_TOKEN")
}

// New creates a Diarizer that shells out to the pyannote helper
// script.
func New(cfg *config.Config, exec executor.Executor, log logger.Logger) Diarizer {
	return &implDiarizer{
		helperPath: cfg.Diarization.HelperPath,
		hfToken:    ResolveToken(cfg),
		executor:   exec,
		logger:     log,
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/CRISUM/MeetingTool/internal/chunker"
	"github.com/CRISUM/MeetingTool/internal/config"
	"github.com/CRISUM/MeetingTool/internal/diarizer"
	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/internal/orchestrator"
	"github.com/CRISUM/MeetingTool/internal/store"
	"github.com/CRISUM/MeetingTool/internal/summarizer"
	"github.com/CRISUM/MeetingTool/internal/task"
	"github.com/CRISUM/MeetingTool/internal/transcriber"
	"github.com/CRISUM/MeetingTool/pkg/executor"
)

// app wires the pipeline components for one command invocation.
type app struct {
	cfg    *config.Config
	logger logger.Logger
	store  store.Store
	orch   orchestrator.Orchestrator
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Logging.Level)

	if err := ensureDirectories(cfg); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}
	if err := cfg.InitPromptFiles(); err != nil {
		return nil, fmt.Errorf("init prompt files: %w", err)
	}

	st, err := store.Open(cfg.Paths.Data)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	exec := executor.New()
	orch := orchestrator.New(
		cfg,
		st,
		chunker.New(exec, log),
		transcriber.New(cfg, exec, log),
		diarizer.New(cfg, exec, log),
		summarizer.New(cfg, log),
		log,
	)

	return &app{cfg: cfg, logger: log, store: st, orch: orch}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// defaultTaskOptions enables each optional stage when its backing
// service is configured.
func defaultTaskOptions(a *app) task.Options {
	return task.Options{
		Diarize:   a.cfg.Diarization.HelperPath != "" && diarizer.ResolveToken(a.cfg) != "",
		Summarize: len(a.cfg.Gemini.APIKeys) > 0,
		Language:  a.cfg.Whisper.Language,
	}
}

func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Temp,
		cfg.Paths.Output,
		cfg.Paths.Data,
		cfg.Paths.Prompts,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

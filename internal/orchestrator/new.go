package orchestrator

import (
	"sync"

	"github.com/CRISUM/MeetingTool/internal/chunker"
	"github.com/CRISUM/MeetingTool/internal/config"
	"github.com/CRISUM/MeetingTool/internal/diarizer"
	"github.com/CRISUM/MeetingTool/internal/logger"
	"github.com/CRISUM/MeetingTool/internal/store"
	"github.com/CRISUM/MeetingTool/internal/summarizer"
	"github.com/CRISUM/MeetingTool/internal/transcriber"
)

const queueCapacity = 256

type implOrchestrator struct {
	cfg         *config.Config
	store       store.Store
	chunker     chunker.Chunker
	transcriber transcriber.Transcriber
	diarizer    diarizer.Diarizer
	summarizer  summarizer.Summarizer
	logger      logger.Logger

	queue chan string
	sem   chan struct{}

	mu       sync.Mutex
	canceled map[string]bool
	started  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New wires the pipeline components into an Orchestrator.
func New(
	cfg *config.Config,
	st store.Store,
	ch chunker.Chunker,
	tr transcriber.Transcriber,
	di diarizer.Diarizer,
	su summarizer.Summarizer,
	log logger.Logger,
) Orchestrator {
	return &implOrchestrator{
		cfg:         cfg,
		store:       st,
		chunker:     ch,
		transcriber: tr,
		diarizer:    di,
		summarizer:  su,
		logger:      log,
		queue:       make(chan string, queueCapacity),
		sem:         make(chan struct{}, cfg.Pipeline.ChunkWorkers),
		canceled:    make(map[string]bool),
		stop:        make(chan struct{}),
	}
}

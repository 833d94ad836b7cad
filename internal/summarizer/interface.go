package summarizer

import "context"

// NamedTranscript pairs a transcript with the recording it came from,
// so merged minutes can attribute points to their source.
type NamedTranscript struct {
	Name string
	Text string
}

// Summarizer turns finished transcripts into LLM-generated markdown
// meeting minutes.
type Summarizer interface {
	// Summarize produces minutes for one recording. Transcripts past
	// the model's working budget are condensed per slice first, then
	// summarized from the condensed points.
	Summarize(ctx context.Context, transcript string) (string, error)

	// SummarizeMerged produces one set of minutes covering several
	// recordings, preserving per-recording attribution.
	SummarizeMerged(ctx context.Context, transcripts []NamedTranscript) (string, error)
}

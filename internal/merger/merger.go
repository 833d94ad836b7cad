// Package merger stitches chunk-local transcription results into one
// file-global segment sequence: shift timestamps, trim overlap-window
// duplicates, and assign speaker labels by temporal overlap. The merge
// is a pure function of the chunk artifacts, so a resumed task and an
// uninterrupted one produce identical output.
package merger

import (
	"fmt"
	"strings"
	"time"

	"github.com/CRISUM/MeetingTool/internal/task"
)

// ChunkResult carries one chunk's cached adapter outputs, offsets
// still chunk-local.
type ChunkResult struct {
	Chunk    task.Chunk
	Segments []task.Segment
	Speakers []task.SpeakerSpan
}

// Merge produces the globally ordered segment sequence for one
// recording. Results must be complete and index-ordered; a missing
// chunk is a programming error in the caller, which must not merge
// before every chunk reports complete.
//
// Overlap handling: each chunk after the first repeats the previous
// chunk's tail. The nominal boundary between chunks i-1 and i is chunk
// i-1's end; segments of chunk i whose midpoint falls before that
// boundary are the earlier chunk's territory and are dropped. A
// remaining near-duplicate straddling the boundary (same normalized
// text, overlapping spans) keeps the larger span.
func Merge(results []ChunkResult) ([]task.Segment, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("merge called with no chunk results")
	}
	for i, r := range results {
		if r.Chunk.Index != i {
			return nil, fmt.Errorf("chunk results out of order: index %d at position %d", r.Chunk.Index, i)
		}
	}

	var merged []task.Segment
	var allSpeakers []task.SpeakerSpan
	diarized := false

	for i, r := range results {
		segments := shiftSegments(r.Segments, r.Chunk.Start)
		if r.Speakers != nil {
			diarized = true
			allSpeakers = append(allSpeakers, shiftSpans(r.Speakers, r.Chunk.Start)...)
		}

		if i > 0 {
			boundary := results[i-1].Chunk.End
			segments = trimBeforeBoundary(segments, boundary)
			merged, segments = dropBoundaryDuplicate(merged, segments)
		}

		merged = append(merged, segments...)
	}

	merged = clampMonotonic(merged)

	if diarized {
		assignSpeakers(merged, allSpeakers)
	}

	return merged, nil
}

func shiftSegments(segments []task.Segment, offset time.Duration) []task.Segment {
	out := make([]task.Segment, len(segments))
	for i, s := range segments {
		s.Start += offset
		s.End += offset
		out[i] = s
	}
	return out
}

func shiftSpans(spans []task.SpeakerSpan, offset time.Duration) []task.SpeakerSpan {
	out := make([]task.SpeakerSpan, len(spans))
	for i, s := range spans {
		s.Start += offset
		s.End += offset
		out[i] = s
	}
	return out
}

// trimBeforeBoundary drops segments whose midpoint falls before the
// boundary: the earlier chunk already transcribed that window without
// a cold start, so its version is preferred.
func trimBeforeBoundary(segments []task.Segment, boundary time.Duration) []task.Segment {
	out := segments[:0]
	for _, s := range segments {
		mid := s.Start + (s.End-s.Start)/2
		if mid < boundary {
			continue
		}
		out = append(out, s)
	}
	return out
}

// dropBoundaryDuplicate suppresses one repeated utterance straddling
// the chunk boundary, keeping the larger text span.
func dropBoundaryDuplicate(merged, incoming []task.Segment) ([]task.Segment, []task.Segment) {
	if len(merged) == 0 || len(incoming) == 0 {
		return merged, incoming
	}

	last := merged[len(merged)-1]
	first := incoming[0]

	if normalizeText(last.Text) != normalizeText(first.Text) {
		return merged, incoming
	}
	if first.Start >= last.End {
		return merged, incoming
	}

	if len(first.Text) > len(last.Text) {
		return merged[:len(merged)-1], incoming
	}
	return merged, incoming[1:]
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// clampMonotonic enforces the output invariant: strictly ordered by
// start, no overlapping ranges. Segments fully covered by their
// predecessor are dropped.
func clampMonotonic(segments []task.Segment) []task.Segment {
	out := segments[:0]
	var prevEnd time.Duration
	for _, s := range segments {
		if s.Start < prevEnd {
			s.Start = prevEnd
		}
		if s.Start >= s.End {
			continue
		}
		out = append(out, s)
		prevEnd = s.End
	}
	return out
}

// assignSpeakers labels each segment with the speaker span of maximum
// temporal overlap. A segment no span covers gets the unknown label
// rather than failing.
func assignSpeakers(segments []task.Segment, spans []task.SpeakerSpan) {
	for i := range segments {
		segments[i].Speaker = findSpeaker(segments[i], spans)
	}
}

func findSpeaker(seg task.Segment, spans []task.SpeakerSpan) string {
	best := task.UnknownSpeaker
	var bestOverlap time.Duration

	for _, span := range spans {
		start := seg.Start
		if span.Start > start {
			start = span.Start
		}
		end := seg.End
		if span.End < end {
			end = span.End
		}
		if overlap := end - start; overlap > bestOverlap {
			bestOverlap = overlap
			best = span.Speaker
		}
	}

	return best
}

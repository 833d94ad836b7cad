package chunker

import "time"

// Plan covers [0, total] with spans of at most chunk+overlap length.
// Nominal boundaries sit at multiples of chunk; every span after the
// first starts overlap earlier than its nominal boundary so no word is
// cut at a boundary. The merger trims the overlap, so it is never
// double-counted. The final span may be shorter than chunk and is
// never padded; a recording shorter than one chunk yields exactly one
// span [0, total].
//
// 65 minutes at 30-minute chunks with 1-minute overlap plans
// [0,30] [29,60] [59,65].
func Plan(total, chunk, overlap time.Duration) []Span {
	if total <= 0 {
		return nil
	}
	if chunk <= 0 || total <= chunk {
		return []Span{{Index: 0, Start: 0, End: total}}
	}

	var spans []Span
	for i := 0; ; i++ {
		nominal := time.Duration(i) * chunk
		if nominal >= total {
			break
		}

		start := nominal - overlap
		if start < 0 {
			start = 0
		}
		end := nominal + chunk
		if end > total {
			end = total
		}

		spans = append(spans, Span{Index: i, Start: start, End: end})

		if end == total {
			break
		}
	}
	return spans
}

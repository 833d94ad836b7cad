package transcriber

import (
	"testing"
	"time"
)

func TestParseWhisperJSON(t *testing.T) {
	data := []byte(`{
		"transcription": [
			{"offsets": {"from": 0, "to": 4200}, "text": " Good morning everyone."},
			{"offsets": {"from": 4200, "to": 9000}, "text": " Let's get started."},
			{"offsets": {"from": 9000, "to": 9500}, "text": "   "}
		]
	}`)

	segments, err := parseWhisperJSON(data)
	if err != nil {
		t.Fatalf("parseWhisperJSON() error = %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2 (blank dropped)", len(segments))
	}
	if segments[0].Text != "Good morning everyone." {
		t.Errorf("segment 0 text = %q", segments[0].Text)
	}
	if segments[0].Start != 0 || segments[0].End != 4200*time.Millisecond {
		t.Errorf("segment 0 span = [%v, %v]", segments[0].Start, segments[0].End)
	}
	if segments[1].Start != 4200*time.Millisecond {
		t.Errorf("segment 1 start = %v", segments[1].Start)
	}
}

func TestParseWhisperJSONRejectsBadOffsets(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "negative start",
			data: `{"transcription": [{"offsets": {"from": -1, "to": 100}, "text": "x"}]}`,
		},
		{
			name: "end before start",
			data: `{"transcription": [{"offsets": {"from": 500, "to": 100}, "text": "x"}]}`,
		},
		{
			name: "out of order",
			data: `{"transcription": [
				{"offsets": {"from": 5000, "to": 6000}, "text": "later"},
				{"offsets": {"from": 1000, "to": 2000}, "text": "earlier"}
			]}`,
		},
		{
			name: "not json",
			data: `whisper exploded`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseWhisperJSON([]byte(tt.data)); err == nil {
				t.Error("parseWhisperJSON() accepted invalid output")
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"auto", ""},
		{"AUTO", ""},
		{" zh ", "zh"},
		{"en", "en"},
	}

	for _, tt := range tests {
		if got := normalizeLanguage(tt.in); got != tt.want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

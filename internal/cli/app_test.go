package cli

import (
	"testing"

	"github.com/CRISUM/MeetingTool/internal/config"
)

func TestDefaultTaskOptions(t *testing.T) {
	tests := []struct {
		name          string
		helper        string
		configToken   string
		envToken      string
		apiKeys       []string
		wantDiarize   bool
		wantSummarize bool
	}{
		{"nothing configured", "", "", "", nil, false, false},
		{"token from config", "helper.py", "tok", "", nil, true, false},
		{"token from environment only", "helper.py", "", "env-tok", nil, true, false},
		{"token without helper", "", "tok", "", nil, false, false},
		{"summarizer keyed", "", "", "", []string{"k1"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HF_TOKEN", tt.envToken)

			cfg := &config.Config{}
			cfg.Diarization.HelperPath = tt.helper
			cfg.Diarization.HFToken = tt.configToken
			cfg.Gemini.APIKeys = tt.apiKeys
			cfg.Whisper.Language = "auto"

			opts := defaultTaskOptions(&app{cfg: cfg})
			if opts.Diarize != tt.wantDiarize {
				t.Errorf("Diarize = %v, want %v", opts.Diarize, tt.wantDiarize)
			}
			if opts.Summarize != tt.wantSummarize {
				t.Errorf("Summarize = %v, want %v", opts.Summarize, tt.wantSummarize)
			}
			if opts.Language != "auto" {
				t.Errorf("Language = %q, want auto", opts.Language)
			}
		})
	}
}

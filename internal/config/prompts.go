package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Prompt template keys. Templates live as editable files under the
// prompts dir so users can tune them without rebuilding.
const (
	PromptSingleSummary = "single_summary"
	PromptChunkExtract  = "chunk_extract"
	PromptMergeSummary  = "merge_summary"
)

const defaultSingleSummary = `You are a professional meeting-minutes assistant. Based on the meeting transcript below, produce structured meeting minutes.

Requirements:
1. Meeting topic / background overview
2. Key discussion points, grouped by topic
3. Positions and viewpoints of the participants (when speakers can be told apart)
4. Agreements and decisions reached
5. Action items and owners (if any)
6. Unresolved disagreements or items to confirm (if any)

Stay objective and accurate. Do not add information that is not in the transcript.

---
Meeting transcript:

{transcript}`

const defaultChunkExtract = `Extract the key points from the following meeting transcript excerpt. Preserve important details, figures, and decisions:

{chunk}`

const defaultMergeSummary = `You are a professional meeting-minutes assistant. Below are point summaries of several meeting recordings that belong to the same meeting or topic.
Merge them into one complete set of structured meeting minutes.

Requirements:
1. Meeting topic / background overview
2. Key discussion points, grouped by topic
3. Positions and viewpoints of the participants (when speakers can be told apart)
4. Agreements and decisions reached
5. Action items and owners (if any)
6. Unresolved disagreements or items to confirm (if any)

Remove duplicated content, organize logically, stay objective and accurate.

---
Point summaries:

{summaries}`

var defaultPrompts = map[string]string{
	PromptSingleSummary: defaultSingleSummary,
	PromptChunkExtract:  defaultChunkExtract,
	PromptMergeSummary:  defaultMergeSummary,
}

// Placeholders each template must contain. A template missing its
// placeholder would silently drop the transcript, so saving one is
// rejected and loading one falls back to the default.
var requiredPlaceholders = map[string][]string{
	PromptSingleSummary: {"{transcript}"},
	PromptChunkExtract:  {"{chunk}"},
	PromptMergeSummary:  {"{summaries}"},
}

// InitPromptFiles writes the default templates for any prompt file
// that does not exist yet.
func (c *Config) InitPromptFiles() error {
	if err := os.MkdirAll(c.Paths.Prompts, 0755); err != nil {
		return fmt.Errorf("create prompts dir: %w", err)
	}

	for key, content := range defaultPrompts {
		path := c.promptPath(key)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write default prompt %s: %w", key, err)
		}
	}
	return nil
}

// LoadPrompt reads a prompt template, falling back to the default when
// the file is missing or lacks a required placeholder.
func (c *Config) LoadPrompt(key string) string {
	fallback, known := defaultPrompts[key]
	if !known {
		return ""
	}

	data, err := os.ReadFile(c.promptPath(key))
	if err != nil {
		return fallback
	}

	content := string(data)
	for _, p := range requiredPlaceholders[key] {
		if !strings.Contains(content, p) {
			return fallback
		}
	}
	return content
}

// SavePrompt validates placeholders and writes a prompt template.
func (c *Config) SavePrompt(key, content string) error {
	required, known := requiredPlaceholders[key]
	if !known {
		return fmt.Errorf("unknown prompt key: %s", key)
	}

	var missing []string
	for _, p := range required {
		if !strings.Contains(content, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt %s is missing required placeholders: %s", key, strings.Join(missing, ", "))
	}

	if err := os.MkdirAll(c.Paths.Prompts, 0755); err != nil {
		return fmt.Errorf("create prompts dir: %w", err)
	}
	if err := os.WriteFile(c.promptPath(key), []byte(content), 0644); err != nil {
		return fmt.Errorf("write prompt %s: %w", key, err)
	}
	return nil
}

func (c *Config) promptPath(key string) string {
	return filepath.Join(c.Paths.Prompts, key+".txt")
}

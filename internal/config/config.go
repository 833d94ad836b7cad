package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Whisper     WhisperConfig     `yaml:"whisper"`
	Diarization DiarizationConfig `yaml:"diarization"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Paths       PathsConfig       `yaml:"paths"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type WhisperConfig struct {
	ModelPath  string `yaml:"model_path"`
	BinaryPath string `yaml:"binary_path"`
	Language   string `yaml:"language"`
	Prompt     string `yaml:"prompt"`
	Threads    int    `yaml:"threads"`
}

type DiarizationConfig struct {
	HelperPath string `yaml:"helper_path"`
	HFToken    string `yaml:"hf_token"`
}

type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
}

type PathsConfig struct {
	Input   string `yaml:"input"`
	Temp    string `yaml:"temp"`
	Output  string `yaml:"output"`
	Data    string `yaml:"data"`
	Prompts string `yaml:"prompts"`
}

type PipelineConfig struct {
	ChunkMinutes    int `yaml:"chunk_minutes"`
	OverlapSeconds  int `yaml:"overlap_seconds"`
	ChunkWorkers    int `yaml:"chunk_workers"`
	MaxChunkRetries int `yaml:"max_chunk_retries"`
	MaxAPIRetries   int `yaml:"max_api_retries"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Whisper.ModelPath == "" {
		return fmt.Errorf("whisper.model_path is required")
	}
	if c.Whisper.BinaryPath == "" {
		return fmt.Errorf("whisper.binary_path is required")
	}
	if c.Paths.Input == "" {
		return fmt.Errorf("paths.input is required")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}

	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.Paths.Data == "" {
		c.Paths.Data = "data"
	}
	if c.Paths.Prompts == "" {
		c.Paths.Prompts = "data/prompts"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "auto"
	}
	if c.Whisper.Threads == 0 {
		c.Whisper.Threads = 8
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Pipeline.ChunkMinutes == 0 {
		c.Pipeline.ChunkMinutes = 30
	}
	if c.Pipeline.OverlapSeconds == 0 {
		c.Pipeline.OverlapSeconds = 60
	}
	if c.Pipeline.ChunkWorkers == 0 {
		c.Pipeline.ChunkWorkers = 2
	}
	if c.Pipeline.MaxChunkRetries == 0 {
		c.Pipeline.MaxChunkRetries = 3
	}
	if c.Pipeline.MaxAPIRetries == 0 {
		c.Pipeline.MaxAPIRetries = 3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Pipeline.OverlapSeconds >= c.Pipeline.ChunkMinutes*60 {
		return fmt.Errorf("pipeline.overlap_seconds must be shorter than the chunk duration")
	}

	return nil
}

// ChunkDuration returns the configured chunk length.
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(c.Pipeline.ChunkMinutes) * time.Minute
}

// OverlapDuration returns the configured chunk overlap.
func (c *Config) OverlapDuration() time.Duration {
	return time.Duration(c.Pipeline.OverlapSeconds) * time.Second
}

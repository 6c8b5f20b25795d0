package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from YAML with environment
// overrides for secrets.
type Config struct {
	Server struct {
		Port        int    `yaml:"port"`
		Host        string `yaml:"host"`
		MaxUploadMB int    `yaml:"max_upload_mb"`
	} `yaml:"server"`

	Providers struct {
		OpenAI struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"openai"`
		ElevenLabs struct {
			APIKey      string `yaml:"api_key"`
			BaseURL     string `yaml:"base_url"`
			RealtimeURL string `yaml:"realtime_url"`
		} `yaml:"elevenlabs"`
	} `yaml:"providers"`

	// Pipeline consolidates the chunking and probing constants in one place.
	Pipeline struct {
		MaxDirectMinutes    int    `yaml:"max_direct_minutes"`
		ChunkSeconds        int    `yaml:"chunk_seconds"`
		FallbackThresholdMB int    `yaml:"fallback_threshold_mb"`
		ProbeTimeoutSeconds int    `yaml:"probe_timeout_seconds"`
		BytesPerSecond      int    `yaml:"bytes_per_second_estimate"`
		QualityModel        string `yaml:"quality_model"`
		DiarizeModel        string `yaml:"diarize_model"`
		RemoteChunkURL      string `yaml:"remote_chunk_url"`
	} `yaml:"pipeline"`

	Realtime struct {
		SampleRate int `yaml:"sample_rate"`
	} `yaml:"realtime"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`
}

// Default returns the documented defaults: 20 min direct limit, 600 s chunks,
// 5 MB fallback threshold, 10 s probe timeout, 16 kHz realtime rate.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.MaxUploadMB = 500
	cfg.Pipeline.MaxDirectMinutes = 20
	cfg.Pipeline.ChunkSeconds = 600
	cfg.Pipeline.FallbackThresholdMB = 5
	cfg.Pipeline.ProbeTimeoutSeconds = 10
	cfg.Pipeline.BytesPerSecond = 3000
	cfg.Pipeline.QualityModel = "whisper-1"
	cfg.Pipeline.DiarizeModel = "scribe_v1"
	cfg.Realtime.SampleRate = 16000
	cfg.Workers.Count = 2
	cfg.Storage.TempDir = "temp"
	cfg.Storage.OutputDir = "outputs"
	cfg.Storage.Database = "transcripts.db"
	cfg.Cleanup.IntervalMinutes = 60
	cfg.Cleanup.MaxAgeHours = 24
	return cfg
}

// Load reads the YAML file over the defaults. API keys can be supplied via
// OPENAI_API_KEY and ELEVENLABS_API_KEY instead of the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		cfg.Providers.ElevenLabs.APIKey = key
	}

	if cfg.Pipeline.ChunkSeconds <= 0 {
		return nil, fmt.Errorf("pipeline.chunk_seconds must be positive")
	}
	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = 1
	}
	return cfg, nil
}

// MaxDirectSeconds is the chunking threshold in seconds.
func (c *Config) MaxDirectSeconds() float64 {
	return float64(c.Pipeline.MaxDirectMinutes) * 60
}

// FallbackThresholdBytes is the size threshold for unconfident probes.
func (c *Config) FallbackThresholdBytes() int64 {
	return int64(c.Pipeline.FallbackThresholdMB) * 1024 * 1024
}

// ProbeTimeout bounds the in-process duration decode.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Pipeline.ProbeTimeoutSeconds) * time.Second
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the narrator tool
type Config struct {
	// Gemini TTS API configuration
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-preview-tts"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`

	// Timeout for a single synthesis request, in seconds. The remote call is
	// bounded; expiry aborts the generation attempt.
	SynthesisTimeout int `envconfig:"SYNTHESIS_TIMEOUT" default:"60"`

	// Audio configuration
	SampleRate   int     `envconfig:"SAMPLE_RATE" default:"24000"` // PCM sample rate returned by the API
	PlaybackRate float64 `envconfig:"PLAYBACK_RATE" default:"1.0"` // Initial playback rate
	MP3Bitrate   int     `envconfig:"MP3_BITRATE" default:"128"`   // kbps

	// Library configuration
	LibraryPath string `envconfig:"LIBRARY_PATH" default:""` // Defaults to ~/.narrator/library.db when empty
	ExportDir   string `envconfig:"EXPORT_DIR" default:"."`  // Directory for exported audio files

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`        // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`       // Pretty print logs (console tool)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"` // Enable the localhost metrics listener
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:"127.0.0.1:9137"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("SAMPLE_RATE must be positive, got %d", cfg.SampleRate)
	}
	if cfg.PlaybackRate <= 0 {
		return nil, fmt.Errorf("PLAYBACK_RATE must be positive, got %f", cfg.PlaybackRate)
	}

	if cfg.LibraryPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.LibraryPath = filepath.Join(home, ".narrator", "library.db")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package config loads sage's configuration from the environment.
//
// Credentials are mode-dependent: audio mode needs an AssemblyAI key, image
// mode needs a bucket and storage credentials, and every mode needs a Gemini
// key. Validation failures are fatal at startup; nothing here is re-read
// after the process is up.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeAudio    Mode = "audio"
	ModeImage    Mode = "image"
	ModeCombined Mode = "combined"
)

type Config struct {
	GeminiAPIKey       string `env:"GOOGLE_API_KEY"`
	AssemblyAIAPIKey   string `env:"ASSEMBLYAI_API_KEY"`
	BucketName         string `env:"GCP_BUCKET_NAME"`
	StorageCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	CheckIntervalSec   int    `env:"CHECK_INTERVAL" envDefault:"5"`
	DownloadDir        string `env:"SAGE_DOWNLOAD_DIR" envDefault:"downloaded_images"`
}

// Load reads .env (best effort) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}
	return &cfg, nil
}

func (c *Config) CheckInterval() time.Duration {
	sec := c.CheckIntervalSec
	if sec <= 0 {
		sec = 5
	}
	return time.Duration(sec) * time.Second
}

// HasAudio reports whether the audio-mode credentials are configured.
func (c *Config) HasAudio() bool {
	return c.AssemblyAIAPIKey != ""
}

// HasImage reports whether the image-mode credentials are configured.
func (c *Config) HasImage() bool {
	return c.BucketName != "" && c.StorageCredentials != ""
}

// ResolveMode maps the -mode flag value to a Mode, defaulting to whatever
// the configured credentials allow.
func (c *Config) ResolveMode(flagMode string) (Mode, error) {
	switch flagMode {
	case "audio":
		return ModeAudio, nil
	case "image":
		return ModeImage, nil
	case "combined":
		return ModeCombined, nil
	case "":
	default:
		return "", fmt.Errorf("unknown mode %q (use audio, image, or combined)", flagMode)
	}

	switch {
	case c.HasAudio() && c.HasImage():
		return ModeCombined, nil
	case c.HasAudio():
		return ModeAudio, nil
	case c.HasImage():
		return ModeImage, nil
	default:
		return ModeCombined, nil // Validate reports what is missing
	}
}

// Validate checks that every credential the selected mode needs is present.
func (c *Config) Validate(mode Mode) error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if mode == ModeAudio || mode == ModeCombined {
		if c.AssemblyAIAPIKey == "" {
			return fmt.Errorf("ASSEMBLYAI_API_KEY is required for %s mode", mode)
		}
	}
	if mode == ModeImage || mode == ModeCombined {
		if c.BucketName == "" {
			return fmt.Errorf("GCP_BUCKET_NAME is required for %s mode", mode)
		}
		if c.StorageCredentials == "" {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required for %s mode", mode)
		}
		if _, err := os.Stat(c.StorageCredentials); err != nil {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS: %w", err)
		}
	}
	return nil
}

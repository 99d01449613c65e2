package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func credFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateAudioMode(t *testing.T) {
	cfg := &Config{GeminiAPIKey: "g", AssemblyAIAPIKey: "a"}
	if err := cfg.Validate(ModeAudio); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = &Config{GeminiAPIKey: "g"}
	if err := cfg.Validate(ModeAudio); err == nil {
		t.Error("expected error for missing ASSEMBLYAI_API_KEY")
	}
}

func TestValidateImageMode(t *testing.T) {
	cfg := &Config{GeminiAPIKey: "g", BucketName: "b", StorageCredentials: credFile(t)}
	if err := cfg.Validate(ModeImage); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = &Config{GeminiAPIKey: "g", BucketName: "b"}
	if err := cfg.Validate(ModeImage); err == nil {
		t.Error("expected error for missing GOOGLE_APPLICATION_CREDENTIALS")
	}

	cfg = &Config{GeminiAPIKey: "g", BucketName: "b", StorageCredentials: "/nonexistent/sa.json"}
	if err := cfg.Validate(ModeImage); err == nil {
		t.Error("expected error for unreadable credentials file")
	}
}

func TestValidateGeminiAlwaysRequired(t *testing.T) {
	cfg := &Config{AssemblyAIAPIKey: "a", BucketName: "b", StorageCredentials: credFile(t)}
	for _, mode := range []Mode{ModeAudio, ModeImage, ModeCombined} {
		if err := cfg.Validate(mode); err == nil {
			t.Errorf("mode %s: expected error for missing GOOGLE_API_KEY", mode)
		}
	}
}

func TestResolveMode(t *testing.T) {
	for _, tt := range []struct {
		name    string
		cfg     Config
		flag    string
		want    Mode
		wantErr bool
	}{
		{"explicit audio", Config{}, "audio", ModeAudio, false},
		{"explicit image", Config{}, "image", ModeImage, false},
		{"explicit combined", Config{}, "combined", ModeCombined, false},
		{"unknown flag", Config{}, "video", "", true},
		{"default both", Config{AssemblyAIAPIKey: "a", BucketName: "b", StorageCredentials: "c"}, "", ModeCombined, false},
		{"default audio only", Config{AssemblyAIAPIKey: "a"}, "", ModeAudio, false},
		{"default image only", Config{BucketName: "b", StorageCredentials: "c"}, "", ModeImage, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveMode(tt.flag)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckInterval(t *testing.T) {
	cfg := &Config{CheckIntervalSec: 10}
	if got := cfg.CheckInterval(); got != 10*time.Second {
		t.Errorf("got %v, want 10s", got)
	}

	cfg = &Config{CheckIntervalSec: 0}
	if got := cfg.CheckInterval(); got != 5*time.Second {
		t.Errorf("got %v, want 5s default", got)
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "gkey")
	t.Setenv("ASSEMBLYAI_API_KEY", "akey")
	t.Setenv("CHECK_INTERVAL", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GeminiAPIKey != "gkey" {
		t.Errorf("GeminiAPIKey = %q", cfg.GeminiAPIKey)
	}
	if cfg.CheckIntervalSec != 7 {
		t.Errorf("CheckIntervalSec = %d, want 7", cfg.CheckIntervalSec)
	}
	if !cfg.HasAudio() {
		t.Error("HasAudio should be true")
	}
}

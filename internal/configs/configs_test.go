package configs

import (
	"strings"
	"testing"
	"time"
)

var allVars = []string{
	"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET",
	"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
	"STORE_DRIVER", "DATABASE_URL", "REDIS_URL",
	"HISTORY_LIMIT", "MAX_TEXT_LENGTH", "SEND_QUEUE_SIZE", "STORE_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range allVars {
		t.Setenv(name, "")
	}
}

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.IsDevelopment() || cfg.Port != 8080 {
		t.Errorf("environment/port = %q/%d", cfg.Environment, cfg.Port)
	}
	if cfg.JWTSecret == "" || cfg.DatabaseDSN == "" {
		t.Error("development must get a default secret and DSN")
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.HistoryLimit != 50 || cfg.MaxTextLength != 500 || cfg.SendQueueSize != 256 {
		t.Errorf("engine limits = %d/%d/%d", cfg.HistoryLimit, cfg.MaxTextLength, cfg.SendQueueSize)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v", cfg.StoreTimeout)
	}
	if cfg.StorageEnabled() {
		t.Error("storage should be disabled without S3 settings")
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("HISTORY_LIMIT", "20")
	t.Setenv("STORE_TIMEOUT", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.StoreDriver != StoreDriverMemory || cfg.HistoryLimit != 20 || cfg.StoreTimeout != 250*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"privileged port", map[string]string{"PORT": "80"}, "port number"},
		{"bad port", map[string]string{"PORT": "http"}, "PORT"},
		{"production without secret", map[string]string{"ENVIRONMENT": "production", "DATABASE_URL": "postgres://x"}, "JWT_SECRET"},
		{"production without dsn", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "s"}, "DATABASE_URL"},
		{"partial s3", map[string]string{"S3_BUCKET_NAME": "b"}, "S3_"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		{"zero history", map[string]string{"HISTORY_LIMIT": "0"}, "HISTORY_LIMIT"},
		{"text limit too large", map[string]string{"MAX_TEXT_LENGTH": "16001"}, "MAX_TEXT_LENGTH"},
		{"bad timeout", map[string]string{"STORE_TIMEOUT": "soon"}, "STORE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_ProductionMemoryStoreNeedsNoDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")

	if _, err := LoadConfig(); err != nil {
		t.Errorf("LoadConfig() error = %v", err)
	}
}

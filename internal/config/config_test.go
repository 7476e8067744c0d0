package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.example.com/v1",
			APIKey:  "test-key",
			Model:   "text-embedding-3-small",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_EmbeddingRequiredUnlessDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding base_url")
	}

	cfg.Embedding.Disabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled embedding should not require provider settings: %v", err)
	}
}

func TestValidate_TopKBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.DefaultTopK = 50
	cfg.Retrieval.MaxTopK = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default_top_k exceeds max_top_k")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Retrieval.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Retrieval.ChunkSize)
	}
	if cfg.Retrieval.DefaultTopK != 5 {
		t.Errorf("expected DefaultTopK=5, got %d", cfg.Retrieval.DefaultTopK)
	}
	if cfg.Retrieval.MaxTopK != 20 {
		t.Errorf("expected MaxTopK=20, got %d", cfg.Retrieval.MaxTopK)
	}
	if cfg.Retrieval.MaxDocumentChars != 1_000_000 {
		t.Errorf("expected MaxDocumentChars=1000000, got %d", cfg.Retrieval.MaxDocumentChars)
	}
	if cfg.Embedding.TimeoutSec != 10 {
		t.Errorf("expected embedding TimeoutSec=10, got %d", cfg.Embedding.TimeoutSec)
	}
	if cfg.Embedding.MaxInputChars != 8000 {
		t.Errorf("expected MaxInputChars=8000, got %d", cfg.Embedding.MaxInputChars)
	}
	if cfg.Storage.KeyPrefix != "docsage:" {
		t.Errorf("expected KeyPrefix=docsage:, got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_ChatInheritsProvider(t *testing.T) {
	cfg := Config{
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.example.com/v1",
			APIKey:  "shared-key",
		},
	}
	cfg.ApplyDefaults()

	if cfg.Chat.BaseURL != "https://api.example.com/v1" {
		t.Errorf("chat base_url should inherit embedding base_url, got %q", cfg.Chat.BaseURL)
	}
	if cfg.Chat.APIKey != "shared-key" {
		t.Errorf("chat api_key should inherit embedding api_key, got %q", cfg.Chat.APIKey)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCSAGE_TEST_KEY", "secret")
	os.Unsetenv("DOCSAGE_TEST_MISSING")

	in := []byte("api_key: ${DOCSAGE_TEST_KEY}\nmodel: ${DOCSAGE_TEST_MISSING:-fallback-model}\n")
	got := string(expandEnvVars(in))
	want := "api_key: secret\nmodel: fallback-model\n"
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

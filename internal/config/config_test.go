package config

import "testing"

func TestAIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  AIConfig
		wantErr bool
	}{
		{
			name: "Valid config",
			config: AIConfig{
				LLMProvider:      "ollama",
				EmbedderProvider: "ollama",
			},
			wantErr: false,
		},
		{
			name: "Missing llm provider",
			config: AIConfig{
				EmbedderProvider: "ollama",
			},
			wantErr: true,
		},
		{
			name: "Missing embedder provider",
			config: AIConfig{
				LLMProvider: "gemini",
			},
			wantErr: true,
		},
		{
			name: "Blank provider treated as missing",
			config: AIConfig{
				LLMProvider:      "   ",
				EmbedderProvider: "ollama",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("AIConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateForServer(t *testing.T) {
	base := Config{
		AI: AIConfig{LLMProvider: "ollama", EmbedderProvider: "ollama"},
	}

	t.Run("requires source host credentials", func(t *testing.T) {
		cfg := base
		if err := cfg.ValidateForServer(); err == nil {
			t.Error("expected error when neither github app id nor token is set")
		}
	})

	t.Run("accepts app id", func(t *testing.T) {
		cfg := base
		cfg.SourceHost.GitHubAppID = 12345
		if err := cfg.ValidateForServer(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("accepts token", func(t *testing.T) {
		cfg := base
		cfg.SourceHost.GitHubToken = "ghp_test"
		if err := cfg.ValidateForServer(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("requires gemini api key for gemini provider", func(t *testing.T) {
		cfg := base
		cfg.SourceHost.GitHubToken = "ghp_test"
		cfg.AI.LLMProvider = llmProviderGemini
		if err := cfg.ValidateForServer(); err == nil {
			t.Error("expected error when gemini provider is set without an api key")
		}
	})
}

func TestDBConfig_GetDSN(t *testing.T) {
	db := DBConfig{
		Host:     "localhost",
		Port:     5432,
		Username: "postgres",
		Password: "secret",
		Database: "docwarden",
		SSLMode:  "disable",
	}
	want := "host=localhost port=5432 user=postgres password=secret dbname=docwarden sslmode=disable"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

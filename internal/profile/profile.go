package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, siliconflow, ollama) use the same config.
	LLMProvider    string  // Provider identifier: openai, deepseek, siliconflow, ollama
	LLMAPIKey      string  // LLM API key
	LLMBaseURL     string  // LLM base URL (optional, has default per provider)
	LLMModel       string  // Model name: gpt-4o, deepseek-chat, etc.
	LLMTimeout     int     // LLM request timeout in seconds (default: 120)
	LLMTemperature float32 // Sampling temperature (default: 0.7)

	// Google sign-in configuration
	GoogleClientID string

	// Guest usage policy. The thresholds escalate an anonymous session from a
	// dismissible signup nudge to a hard block.
	GuestSoftLimit int // messages before the signup nudge (default: 3)
	GuestHardLimit int // messages before the hard block (default: 5)

	// ContextWindow is how many trailing transcript messages are sent to the
	// completion API per turn (default: 5).
	ContextWindow int

	// Other configurations
	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
	Secret      string // signing secret for minted access tokens
}

// Provider default configurations for LLM.
// Used when LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM API key is configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("VEDYX_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("VEDYX_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("VEDYX_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("VEDYX_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("VEDYX_LLM_TIMEOUT_SECONDS", 120)
	p.LLMTemperature = 0.7
	if v := os.Getenv("VEDYX_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.LLMTemperature = float32(f)
		}
	}

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.GoogleClientID = getEnvOrDefault("VEDYX_GOOGLE_CLIENT_ID", "")
	p.Secret = getEnvOrDefault("VEDYX_SECRET", p.Secret)

	p.GuestSoftLimit = getEnvOrDefaultInt("VEDYX_GUEST_SOFT_LIMIT", 3)
	p.GuestHardLimit = getEnvOrDefaultInt("VEDYX_GUEST_HARD_LIMIT", 5)
	p.ContextWindow = getEnvOrDefaultInt("VEDYX_CONTEXT_WINDOW", 5)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.GuestSoftLimit <= 0 {
		p.GuestSoftLimit = 3
	}
	if p.GuestHardLimit <= p.GuestSoftLimit {
		p.GuestHardLimit = p.GuestSoftLimit + 2
	}
	if p.ContextWindow <= 0 {
		p.ContextWindow = 5
	}

	if p.Driver == "sqlite" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return errors.Wrap(err, "failed to check data directory")
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("vedyx_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		p.Secret = "vedyx-dev-secret"
	}

	return nil
}

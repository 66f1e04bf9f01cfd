package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration for the research AI core and its dev tooling.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where the research content lives
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the core
	Version string

	// AI Configuration
	AIEmbeddingBackend    string  // RESEARCH_AI_EMBEDDING_BACKEND (default: google_gemini)
	AIOpenAIBaseURL       string  // RESEARCH_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIGeminiBaseURL       string  // RESEARCH_AI_GEMINI_BASE_URL (default: "", SDK default)
	AIClaudeBaseURL       string  // RESEARCH_AI_CLAUDE_BASE_URL (default: https://api.anthropic.com/v1/)
	AIPerplexityBaseURL   string  // RESEARCH_AI_PERPLEXITY_BASE_URL (default: https://api.perplexity.ai)
	AIRequestsPerSecond   float64 // RESEARCH_AI_REQUESTS_PER_SECOND (default: 0, unlimited)
	AIRequestBurst        int     // RESEARCH_AI_REQUEST_BURST (default: 5)
	AICapabilitiesFile    string  // RESEARCH_AI_CAPABILITIES_FILE (optional YAML extension)
	AIEmbeddingCacheSize  int     // RESEARCH_AI_EMBEDDING_CACHE_SIZE (default: 512)
	AIContextCandidateCap int     // RESEARCH_AI_CONTEXT_CANDIDATES (default: 100)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer env value", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return n
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring invalid float env value", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return f
}

// FromEnv loads configuration from RESEARCH_* environment variables.
// Values already set on the profile are kept when the variable is absent.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("RESEARCH_MODE", orDefault(p.Mode, "dev"))
	p.Driver = getEnvOrDefault("RESEARCH_DRIVER", orDefault(p.Driver, "sqlite"))
	p.DSN = getEnvOrDefault("RESEARCH_DSN", p.DSN)
	p.Data = getEnvOrDefault("RESEARCH_DATA", p.Data)

	p.AIEmbeddingBackend = getEnvOrDefault("RESEARCH_AI_EMBEDDING_BACKEND", "google_gemini")
	p.AIOpenAIBaseURL = getEnvOrDefault("RESEARCH_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIGeminiBaseURL = os.Getenv("RESEARCH_AI_GEMINI_BASE_URL")
	p.AIClaudeBaseURL = getEnvOrDefault("RESEARCH_AI_CLAUDE_BASE_URL", "https://api.anthropic.com/v1/")
	p.AIPerplexityBaseURL = getEnvOrDefault("RESEARCH_AI_PERPLEXITY_BASE_URL", "https://api.perplexity.ai")
	p.AIRequestsPerSecond = getFloatEnvOrDefault("RESEARCH_AI_REQUESTS_PER_SECOND", 0)
	p.AIRequestBurst = getIntEnvOrDefault("RESEARCH_AI_REQUEST_BURST", 5)
	p.AICapabilitiesFile = os.Getenv("RESEARCH_AI_CAPABILITIES_FILE")
	p.AIEmbeddingCacheSize = getIntEnvOrDefault("RESEARCH_AI_EMBEDDING_CACHE_SIZE", 512)
	p.AIContextCandidateCap = getIntEnvOrDefault("RESEARCH_AI_CONTEXT_CANDIDATES", 100)
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
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

	switch p.Driver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("research_%s.db", p.Mode))
	}

	if p.AIRequestsPerSecond < 0 {
		return errors.New("requests per second must not be negative")
	}

	return nil
}

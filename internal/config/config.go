package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// requiredVars are the Azure OpenAI settings the service cannot run without.
var requiredVars = []string{
	"AZURE_OPENAI_KEY",
	"AZURE_OPENAI_ENDPOINT",
	"AZURE_OPENAI_DEPLOYMENT",
}

type Config struct {
	// Server
	Port string
	Env  string

	// Azure OpenAI
	AzureOpenAIKey        string
	AzureOpenAIEndpoint   string
	AzureOpenAIDeployment string
	AzureAPIVersion       string

	// Chat behavior
	ChatTimeoutSeconds    int
	StreamSimulateDelayMs int

	// Frontend
	FrontendURL string

	// Client-side conversation history file
	HistoryPath string
}

// ConfigError reports every required environment variable that is missing,
// so a single startup failure names the full set to fix.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// Load reads configuration from the environment (and .env if present).
// Validation is eager: the caller must treat an error as fatal and not serve.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	var missing []string
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		AzureOpenAIKey:        os.Getenv("AZURE_OPENAI_KEY"),
		AzureOpenAIEndpoint:   strings.TrimRight(os.Getenv("AZURE_OPENAI_ENDPOINT"), "/"),
		AzureOpenAIDeployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		AzureAPIVersion:       getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-10-21"),
		ChatTimeoutSeconds:    getEnvAsIntOrDefault("CHAT_TIMEOUT_SECONDS", 15),
		StreamSimulateDelayMs: getEnvAsIntOrDefault("STREAM_SIMULATE_DELAY_MS", 40),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		HistoryPath:           getEnvOrDefault("CHAT_HISTORY_PATH", ".officechat_history.json"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

package config

import (
	"fmt"
	"os"
	"strings"
)

// Config aggregates the service configuration.
type Config struct {
	Server ServerConfig
	LLM    LLMConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, LLM: loadLLMConfig()}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LLMConfig carries the fallback credentials and model id for the
// generate endpoint. Sessions start from these values and may override
// the credential fields independently.
type LLMConfig struct {
	EndpointURL string
	Username    string
	Secret      string
	Model       string
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		EndpointURL: getEnvOrDefault("LLM_ENDPOINT", "http://localhost:11434"),
		Username:    getEnvOrDefault("LLM_USERNAME", "api"),
		Secret:      strings.TrimSpace(os.Getenv("LLM_SECRET")),
		Model:       getEnvOrDefault("LLM_MODEL", "llama3"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

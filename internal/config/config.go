// Package config loads daemon configuration from a JSON file with
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces the override variables, e.g. INVOICEMCP_HTTP_PORT.
const envPrefix = "invoicemcp"

// HTTP configures the loopback control plane listener.
type HTTP struct {
	Port int `json:"port" envconfig:"HTTP_PORT"`
}

// Database points at the invoicing database CRUD façade.
type Database struct {
	APIURL string `json:"apiUrl" envconfig:"DATABASE_API_URL"`
}

// LLM configures the local chat-completion endpoint used by the translator.
type LLM struct {
	URL          string  `json:"url" envconfig:"LLM_URL"`
	Model        string  `json:"model" envconfig:"LLM_MODEL"`
	Temperature  float64 `json:"temperature" envconfig:"LLM_TEMPERATURE"`
	MaxTokens    int     `json:"maxTokens" envconfig:"LLM_MAX_TOKENS"`
	SystemPrompt string  `json:"systemPrompt" envconfig:"LLM_SYSTEM_PROMPT"`
}

// Logging configures the append-only log file.
type Logging struct {
	File string `json:"file" envconfig:"LOG_FILE"`
}

// MCP identifies the tool server to the parent host.
type MCP struct {
	ProtocolVersion string `json:"protocolVersion" envconfig:"MCP_PROTOCOL_VERSION"`
	Name            string `json:"name" envconfig:"MCP_NAME"`
	Version         string `json:"version" envconfig:"MCP_VERSION"`
}

// Config wraps all sections. The mailer consumes HTTP, Logging and MCP;
// the translator additionally consumes Database and LLM.
type Config struct {
	HTTP     HTTP     `json:"http"`
	Database Database `json:"database"`
	LLM      LLM      `json:"llm"`
	Logging  Logging  `json:"logging"`
	MCP      MCP      `json:"mcp"`
}

// Default returns a Config populated with the documented defaults.
func Default() Config {
	return Config{
		HTTP: HTTP{Port: 3001},
		LLM: LLM{
			URL:         "http://127.0.0.1:11434/v1/chat/completions",
			Model:       "llama3.1",
			Temperature: 0.1,
			MaxTokens:   500,
		},
		MCP: MCP{
			ProtocolVersion: "2024-11-05",
			Name:            "invoice-mcp",
			Version:         "v1.0.0",
		},
	}
}

// Load reads the JSON config file at path (missing file means defaults
// only), optionally loads an env file, then applies environment
// overrides on top.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Fall through to env overrides.
		case err != nil:
			return cfg, fmt.Errorf("os.Open failed: %w", err)
		default:
			defer func() { _ = f.Close() }()
			if err := json.NewDecoder(f).Decode(&cfg); err != nil {
				return cfg, fmt.Errorf("json.NewDecoder.Decode failed: %w", err)
			}
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("envconfig.Process failed: %w", err)
	}

	return cfg, nil
}

package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// HARNESS CONFIGURATION
// ============================================================================

// Configuration is the YAML harness config tying scenarios to LLM providers,
// MCP tool servers and agent definitions.
type Configuration struct {
	Providers []Provider        `yaml:"providers"`
	Servers   []Server          `yaml:"servers"`
	Agents    []Agent           `yaml:"agents"`
	Settings  Settings          `yaml:"settings"`
	Variables map[string]string `yaml:"variables,omitempty"`
}

// ============================================================================
// PROVIDER CONFIGURATION
// ============================================================================

type Provider struct {
	Name            string       `yaml:"name"`
	Type            ProviderType `yaml:"type"`
	Token           string       `yaml:"token"`
	Secret          string       `yaml:"secret"`
	Model           string       `yaml:"model"`
	BaseURL         string       `yaml:"baseUrl"`
	Version         string       `yaml:"version"` // e.g., 2025-01-01-preview
	ProjectID       string       `yaml:"project_id"`
	Location        string       `yaml:"location"`
	CredentialsPath string       `yaml:"credentials_path"`
	AuthType        string       `yaml:"auth_type"` // For AZURE: "api_key" (default) or "entra_id"
}

type ProviderType string

const (
	ProviderGroq            ProviderType = "GROQ"
	ProviderGoogle          ProviderType = "GOOGLE"
	ProviderVertex          ProviderType = "VERTEX"
	ProviderAnthropic       ProviderType = "ANTHROPIC"
	ProviderAmazonAnthropic ProviderType = "AMAZON-ANTHROPIC"
	ProviderOpenAI          ProviderType = "OPENAI"
	ProviderAzure           ProviderType = "AZURE"
)

// ============================================================================
// SERVER CONFIGURATION
// ============================================================================

type Server struct {
	Name        string     `yaml:"name"`
	Type        ServerType `yaml:"type"`
	Command     string     `yaml:"command,omitempty"`
	URL         string     `yaml:"url,omitempty"`
	Headers     []string   `yaml:"headers"`
	ServerDelay string     `yaml:"server_delay,omitempty"`
}

type ServerType string

const (
	Stdio ServerType = "stdio"
	SSE   ServerType = "sse"
	Http  ServerType = "http"
)

// ============================================================================
// AGENT CONFIGURATION
// ============================================================================

type Agent struct {
	Name         string        `yaml:"name"`
	Settings     Settings      `yaml:"settings"`
	Servers      []AgentServer `yaml:"servers"`
	Provider     string        `yaml:"provider"`
	SystemPrompt string        `yaml:"system_prompt,omitempty"`
	Handoffs     []string      `yaml:"handoffs,omitempty"`
}

type AgentServer struct {
	Name         string   `yaml:"name"`
	AllowedTools []string `yaml:"allowed_tools,omitempty"`
}

// ============================================================================
// SETTINGS
// ============================================================================

type Settings struct {
	Verbose       bool   `yaml:"verbose"`
	ToolTimeout   string `yaml:"tool_timeout"`
	TurnTimeout   string `yaml:"turn_timeout"`
	MaxIterations int    `yaml:"max_iterations"`
	ScenarioDelay string `yaml:"scenario_delay"`
	Parallel      int    `yaml:"parallel"`
}

// ============================================================================
// YAML PARSER
// ============================================================================

func ParseConfig(filename string) (*Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseConfigFromString(string(data))
}

func ParseConfigFromString(definition string) (*Configuration, error) {
	var config Configuration
	if err := yaml.Unmarshal([]byte(definition), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return &config, nil
}

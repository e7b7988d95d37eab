package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/havenai/haven/errors"
	"github.com/havenai/haven/logger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const dirName = ".haven"

type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Toolset is a named list of doublestar patterns over tool names.
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

// Provider configures the external property data service.
type Provider struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Config struct {
	LLMClient            string        `yaml:"llm"`
	Model                string        `yaml:"model"`
	BaseURL              string        `yaml:"base_url"`
	Temperature          float64       `yaml:"temperature"`
	MaxIterations        int           `yaml:"max_iterations"`
	SystemPrompt         string        `yaml:"system_prompt"`
	Listen               string        `yaml:"listen"`
	Toolsets             []Toolset     `yaml:"toolsets"`
	AdditionalMCPServers []MCPServer   `yaml:"additional_mcp_servers"`
	Provider             Provider      `yaml:"provider"`
	Logging              logger.Config `yaml:"logging"`
}

// Default returns the configuration used before any file or env override.
func Default() *Config {
	return &Config{
		LLMClient:     "openai",
		Model:         "gpt-4o-mini",
		Temperature:   0.7,
		MaxIterations: 15,
		Listen:        ":8000",
		Toolsets:      []Toolset{{Name: "default", Tools: []string{"*"}}},
		Provider:      Provider{TimeoutSeconds: 15},
		Logging:       logger.DefaultConfig(),
	}
}

// LoadConfig loads .env, then configuration from the user's home directory
// and the current working directory, with the latter taking precedence.
// Environment variables override both.
func LoadConfig() (*Config, error) {
	home, _ := os.UserHomeDir()
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	if err := loadDotEnv(filepath.Join(wd, ".env")); err != nil {
		return nil, err
	}
	return load(home, wd)
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// Existing environment variables win over .env entries.
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "error loading %s", path)
	}
	return nil
}

func load(home, wd string) (*Config, error) {
	cfg := Default()

	if home != "" {
		userConfigPath := filepath.Join(home, dirName, "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	projectConfigPath := filepath.Join(wd, dirName, "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overwrites only the fields present in the YAML document.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HAVEN_LLM"); v != "" {
		cfg.LLMClient = v
	}
	if v := os.Getenv("HAVEN_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("HAVEN_LISTEN"); v != "" {
		cfg.Listen = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.Listen = ":" + v
	}
	if v := os.Getenv("HAVEN_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errors.New("HAVEN_MAX_ITERATIONS must be a positive integer, got %q", v)
		}
		cfg.MaxIterations = n
	}
	if v := os.Getenv("HAVEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// APIKey returns the credential for the configured model backend. Bedrock
// uses the AWS credential chain and Ollama needs none, so both return "".
func (c *Config) APIKey() string {
	switch c.LLMClient {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

// ProviderAPIKey returns the property data service key, or "" when the
// criteria search is disabled.
func (c *Config) ProviderAPIKey() string {
	return os.Getenv("ATTOM_API_KEY")
}

// GetToolset finds a toolset by name. Returns the "default" toolset if the
// named one is not found or if an empty name is provided.
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for _, ts := range c.Toolsets {
		if ts.Name == name {
			return &ts, nil
		}
	}
	if name == "default" {
		return nil, errors.New("mandatory 'default' toolset not found in configuration")
	}
	return c.GetToolset("default")
}

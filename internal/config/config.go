package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	LLM       LLM       `yaml:"llm"`
	Directory Directory `yaml:"directory"`
	Cache     Cache     `yaml:"cache"`
	Runner    Runner    `yaml:"runner"`
	Server    Server    `yaml:"server"`
	Output    Output    `yaml:"output"`
	Logging   Logging   `yaml:"logging"`
}

type LLM struct {
	Provider  string        `yaml:"provider" validate:"oneof=openai ollama gemini none"`
	Model     string        `yaml:"model" validate:"required_unless=Provider none"`
	OllamaURL string        `yaml:"ollama_url" validate:"omitempty,url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	MaxTokens int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

type Directory struct {
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Host              string        `yaml:"host"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	SyntheticProfiles bool          `yaml:"synthetic_profiles"`
	DescribeWebsites  bool          `yaml:"describe_websites"`
}

type Cache struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
}

type Runner struct {
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`
}

type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// ConfigDir returns the XDG config directory for orgscout.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "orgscout")
}

// DataDir returns the XDG data directory for orgscout.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "orgscout")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/orgscout/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'orgscout init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		LLM: LLM{
			Provider:  "openai",
			Model:     "gpt-4o",
			OllamaURL: "http://localhost:11434",
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 1024,
			Timeout:   60 * time.Second,
		},
		Directory: Directory{
			BaseURL:           "https://linkedin-data-scraper.p.rapidapi.com",
			Host:              "linkedin-data-scraper.p.rapidapi.com",
			APIKeyEnv:         "RAPIDAPI_KEY",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
			DescribeWebsites:  true,
		},
		Cache:   Cache{TTL: 24 * time.Hour},
		Runner:  Runner{Workers: 4},
		Server:  Server{Host: "127.0.0.1", Port: 8000},
		Logging: Logging{Level: "info", Format: "console"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// APIKey returns the value of the environment variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

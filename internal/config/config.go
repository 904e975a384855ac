// Package config loads server configuration from a YAML file with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration of the server binary.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Store    StoreConfig    `yaml:"store"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type WorkflowConfig struct {
	Timeout Duration `yaml:"timeout"`
	DataDir string   `yaml:"data_dir"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// StoreConfig selects the run store backend.
// Driver is one of "memory", "sqlite" or "redis"; DSN is the SQLite file
// path or the Redis URL depending on the driver.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8000"},
		OpenAI:   OpenAIConfig{Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
		Workflow: WorkflowConfig{Timeout: Duration(10 * time.Minute), DataDir: "data"},
		Store:    StoreConfig{Driver: "memory"},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// loads defaults only. The OPENAI_API_KEY environment variable, when set,
// takes precedence over the file so the key can stay out of config files.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("openai api key is not set (openai.api_key or OPENAI_API_KEY)")
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "redis":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires store.dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		URL string `yaml:"url"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	User struct {
		ID       string `yaml:"id"`
		Username string `yaml:"username"`
		Token    string `yaml:"token"`
	} `yaml:"user"`
	Output struct {
		Currency string `yaml:"currency"`
	} `yaml:"output"`
}

var GlobalConfig *Config

// GetConfigDir honours LITVERSE_HOME before falling back to ~/.litverse.
func GetConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("LITVERSE_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".litverse"), nil
}

func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	GlobalConfig = &config
	return &config, nil
}

func Save(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file holds a bearer token.
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	GlobalConfig = config
	return nil
}

// Init writes a default config unless one already exists.
func Init() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := Load(); err == nil {
		return nil
	}

	config := &Config{}
	config.Server.URL = "http://localhost:5000"
	config.Database.Path = filepath.Join(configDir, "litverse.db")
	config.Output.Currency = "$"
	return Save(config)
}

func UpdateUserToken(userID, username, token string) error {
	config, err := Load()
	if err != nil {
		return err
	}

	config.User.ID = userID
	config.User.Username = username
	config.User.Token = token

	return Save(config)
}

func ClearUserToken() error {
	config, err := Load()
	if err != nil {
		return err
	}

	config.User.ID = ""
	config.User.Username = ""
	config.User.Token = ""

	return Save(config)
}

// GetServerURL prefers LITVERSE_SERVER over the configured URL.
func GetServerURL() (string, error) {
	if env := strings.TrimSpace(os.Getenv("LITVERSE_SERVER")); env != "" {
		return strings.TrimRight(env, "/"), nil
	}
	config, err := Load()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(config.Server.URL, "/"), nil
}

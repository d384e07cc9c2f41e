package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "kansho"
	configFileName = "config.json"
	envFileName    = ".env"
)

type ProviderConfig struct {
	MangaDexAPIKey   string `json:"mangadex_api_key,omitempty"`
	MangapillBaseURL string `json:"mangapill_base_url,omitempty"`
}

type Config struct {
	DataDir   string         `json:"data_dir,omitempty"`
	Verbose   bool           `json:"verbose"`
	Providers ProviderConfig `json:"providers,omitempty"`
}

func DefaultConfig() Config {
	return Config{}
}

func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve config dir: %w", err)
	}
	return filepath.Join(configDir, appDirName), nil
}

func ConfigPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

func EnvPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, envFileName), nil
}

func LoadEnv() error {
	envPath, err := EnvPath()
	if err != nil {
		return err
	}

	file, err := os.Open(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("unable to parse env file: %w", err)
	}

	return nil
}

func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := LoadEnv(); err != nil {
		return cfg, err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ApplyEnvDefaults(cfg), nil
		}
		return cfg, fmt.Errorf("unable to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config: %w", err)
	}

	return ApplyEnvDefaults(cfg), nil
}

func SaveConfig(cfg Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("unable to write config: %w", err)
	}

	return nil
}

func ApplyEnvDefaults(cfg Config) Config {
	if cfg.DataDir == "" {
		if value := strings.TrimSpace(os.Getenv("KANSHO_DATA_DIR")); value != "" {
			cfg.DataDir = value
		}
	}
	if !cfg.Verbose {
		if value := strings.TrimSpace(os.Getenv("KANSHO_VERBOSE")); value != "" {
			cfg.Verbose = value == "1" || strings.EqualFold(value, "true")
		}
	}
	if cfg.Providers.MangaDexAPIKey == "" {
		if value := strings.TrimSpace(os.Getenv("KANSHO_MANGADEX_API_KEY")); value != "" {
			cfg.Providers.MangaDexAPIKey = value
		}
	}
	if cfg.Providers.MangapillBaseURL == "" {
		if value := strings.TrimSpace(os.Getenv("KANSHO_MANGAPILL_BASE_URL")); value != "" {
			cfg.Providers.MangapillBaseURL = value
		}
	}

	return cfg
}

// DataRoot resolves the directory holding downloads, cache, backups, and the
// state file, defaulting to the user cache dir.
func (cfg Config) DataRoot() (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve cache dir: %w", err)
	}
	return filepath.Join(cacheDir, appDirName), nil
}

func (cfg Config) Validate() error {
	_, err := cfg.DataRoot()
	return err
}

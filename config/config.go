package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	EventLogPath   string `toml:"EventLogPath"`
	Environment    string `toml:"Environment"`
	RPCTokenEnv    string `toml:"RPCTokenEnv"`
	JWTSecretEnv   string `toml:"JWTSecretEnv"`
	LogPath        string `toml:"LogPath"`
	LogMaxSizeMB   int    `toml:"LogMaxSizeMB"`
	LogMaxBackups  int    `toml:"LogMaxBackups"`
	LogMaxAgeDays  int    `toml:"LogMaxAgeDays"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RPCAddress == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./perkdata"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "leveldb"
	}
	if cfg.EventLogPath == "" {
		cfg.EventLogPath = filepath.Join(cfg.DataDir, "eventlog.db")
	}
	if cfg.RPCTokenEnv == "" {
		cfg.RPCTokenEnv = "PERK_RPC_TOKEN"
	}
	if cfg.JWTSecretEnv == "" {
		cfg.JWTSecretEnv = "PERK_JWT_SECRET"
	}
}

func validate(cfg *Config) error {
	switch cfg.StorageBackend {
	case "memory", "leveldb", "bolt":
	default:
		return fmt.Errorf("config: unknown storage backend %q", cfg.StorageBackend)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

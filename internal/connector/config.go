package connector

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config controls the connector's working directory and server launch.
// The zero value launches a default server in a fresh temp directory.
type Config struct {
	WorkingDir string `toml:"working_dir"`
	Binary     string `toml:"binary"`
	ServerName string `toml:"server_name"`
	ServerPort int    `toml:"server_port"`
	Session    string `toml:"session"`
}

func (c Config) WithDefaults() Config {
	if c.Session == "" {
		c.Session = "Main"
	}
	return c
}

// LoadConfig reads a connector config from a TOML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("connector: load config (%s): %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("connector: parse config (%s): %w", path, err)
	}
	return cfg.WithDefaults(), nil
}

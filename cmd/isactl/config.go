package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/provekit/isactl/internal/client"
)

// settings is the merged runtime configuration: file values overlay the
// defaults, flags overlay the file.
type settings struct {
	client      client.Config
	metricsAddr string
	workingDir  string
	session     string
	logWire     bool
}

// fileConfig is the isactl.toml key mapping.
type fileConfig struct {
	Addr        string `toml:"addr"`
	Port        int    `toml:"port"`
	Password    string `toml:"password"`
	MetricsAddr string `toml:"metrics_addr"`
	WorkingDir  string `toml:"working_dir"`
	Session     string `toml:"session"`
	LogWire     bool   `toml:"log_wire"`
}

func defaultSettings() settings {
	return settings{
		client:  client.Config{Address: "127.0.0.1"},
		session: "Main",
	}
}

// loadSettings applies a TOML config over the defaults, touching only keys
// the file actually defines.
func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load isactl config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.client.Address = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("port") {
		cfg.client.Port = raw.Port
	}
	if meta.IsDefined("password") {
		cfg.client.Password = raw.Password
	}
	if meta.IsDefined("metrics_addr") {
		cfg.metricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("working_dir") {
		cfg.workingDir = strings.TrimSpace(raw.WorkingDir)
	}
	if meta.IsDefined("session") {
		cfg.session = strings.TrimSpace(raw.Session)
	}
	if meta.IsDefined("log_wire") {
		cfg.logWire = raw.LogWire
	}
	return cfg, nil
}

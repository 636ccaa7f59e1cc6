package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// config is the demo configuration, loadable from a TOML file.
type config struct {
	Backend         string
	Clients         int
	Frames          int
	Width           int
	Height          int
	ResizeEvery     int
	RecycleBudgetKB int64
	MaxTextureSize  int
	PumpDepth       int
	LogLevel        string
}

func defaultConfig() config {
	return config{
		Clients:     4,
		Frames:      120,
		Width:       256,
		Height:      256,
		ResizeEvery: 30,
		PumpDepth:   64,
		LogLevel:    "info",
	}
}

// readConfig overlays the file at path on conf.
func readConfig(path string, conf *config) error {
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// writeConfig stores conf at path.
func writeConfig(path string, conf *config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(conf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buffer.Bytes(), 0o644) //nolint:gosec // G306: not secret
}

// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Reading ReadingConfig `toml:"reading"`
	Listen  ListenConfig  `toml:"listen"`
	Report  ReportConfig  `toml:"report"`
	Log     LogConfig     `toml:"log"`
}

// ReadingConfig maps comparison and document settings.
type ReadingConfig struct {
	Tolerance   *float64 `toml:"tolerance"`
	TxtMaxChars *int     `toml:"txt-max-chars"`
	PdfMaxChars *int     `toml:"pdf-max-chars"`
	PdfPages    *int     `toml:"pdf-pages"`
	Lang        *string  `toml:"lang"`
}

// ListenConfig maps the transcript socket settings.
type ListenConfig struct {
	Addr *string `toml:"addr"`
}

// ReportConfig maps export settings.
type ReportConfig struct {
	Dir *string `toml:"dir"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"k5ktool/generator"
	"k5ktool/k5000"
)

const defaultConfigFile = "k5ktool.yaml"

// Config holds the settings read from k5ktool.yaml. Every field is optional.
type Config struct {
	// Channel is the MIDI channel written into dumps, 1..16.
	Channel         int    `yaml:"channel"`
	Bank            string `yaml:"bank"`
	Templates       string `yaml:"templates"`
	StrictChecksums bool   `yaml:"strict_checksums"`
	// OutputDir is where relative output paths of set and generate land.
	OutputDir string `yaml:"output_dir"`
	// Jobs bounds how many bank files list and convert work on at once.
	Jobs int `yaml:"jobs"`
}

func defaultConfig() Config {
	return Config{
		Channel:   1,
		Bank:      "A",
		OutputDir: ".",
		Jobs:      4,
	}
}

func configPath() string {
	if p := os.Getenv("K5KTOOL_CONFIG"); p != "" {
		return p
	}
	return defaultConfigFile
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Channel < 1 || c.Channel > 16 {
		return fmt.Errorf("channel must be in range 1–16, got %d", c.Channel)
	}
	if _, err := k5000.ParseBankID(c.Bank); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

func (c Config) bankID() k5000.BankID {
	id, err := k5000.ParseBankID(c.Bank)
	if err != nil {
		return k5000.BankA
	}
	return id
}

func (c Config) header(fn k5000.Function) k5000.Header {
	return k5000.NewHeader(uint8(c.Channel), fn, k5000.KindSingle, c.bankID())
}

func (c Config) decodeOptions() []k5000.DecodeOption {
	if c.StrictChecksums {
		return []k5000.DecodeOption{k5000.VerifyChecksums()}
	}
	return nil
}

// templates returns the built-in templates with the configured template
// file merged over them.
func (c Config) templates() (*generator.TemplateSet, error) {
	ts := generator.DefaultTemplates()
	if c.Templates == "" {
		return ts, nil
	}
	loaded, err := generator.LoadTemplates(c.Templates)
	if err != nil {
		return nil, err
	}
	ts.Merge(loaded)
	return ts, nil
}

func (c Config) outputPath(path string) string {
	if filepath.IsAbs(path) || c.OutputDir == "" {
		return path
	}
	return filepath.Join(c.OutputDir, path)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const configFileName = "zeroir.json"

// Config is the zeroir configuration file. Flags override file values.
type Config struct {
	Debug    bool   `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
	DataDir  string `json:"dataDir,omitempty" jsonschema:"title=Data Directory,description=Directory holding zeroir.json"`
	Mode     int    `json:"mode,omitempty" jsonschema:"title=Decoder Mode,description=Force the decoder mode instead of using the binary ISA,enum=0,enum=32,enum=64"`
	Workers  int    `json:"workers,omitempty" jsonschema:"title=Workers,description=Maximum sections swept in parallel; 0 means unbounded,minimum=0"`
	NoColor  bool   `json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable syntax highlighting"`
	FactsDir string `json:"factsDir,omitempty" jsonschema:"title=Facts Directory,description=Default output directory of the facts command"`
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".zeroir"
	}
	return filepath.Join(dir, "zeroir")
}

// readConfig decodes the file at path. A missing file is only an error
// when required is set.
func readConfig(path string, required bool) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfig reads --config, or zeroir.json in the data directory, and
// applies any flags the user set.
func loadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()
	dataDir, _ := flags.GetString("data-dir")
	path, _ := flags.GetString("config")

	var cfg Config
	var err error
	if path != "" {
		cfg, err = readConfig(path, true)
	} else {
		dir := dataDir
		if dir == "" {
			dir = defaultDataDir()
		}
		cfg, err = readConfig(filepath.Join(dir, configFileName), false)
	}
	if err != nil {
		return cfg, err
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("mode") {
		cfg.Mode, _ = flags.GetInt("mode")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
	}

	switch cfg.Mode {
	case 0, 32, 64:
	default:
		return cfg, fmt.Errorf("invalid decoder mode %d: want 32 or 64", cfg.Mode)
	}
	if cfg.Workers < 0 {
		return cfg, fmt.Errorf("invalid worker count %d", cfg.Workers)
	}
	return cfg, nil
}

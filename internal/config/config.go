// Package config resolves the runs configuration from defaults, a
// .runsrc file, RUNS_* environment variables, and command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the working
	// directory and then the data directory.
	FileName = ".runsrc"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RUNS"

	dbFileName = "runs.db"
)

// Config holds all application configuration.
type Config struct {
	DataDir string `mapstructure:"data_dir"`
	DBPath  string `mapstructure:"db_path"`
	// Prefix is prepended to every recorded command, for example
	// an environment setup or scheduler wrapper.
	Prefix string `mapstructure:"prefix"`
	// Flags are appended to every recorded command. "<path>" and
	// "<name>" are replaced per run.
	Flags []string `mapstructure:"flags"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	dataDir := filepath.Join(home, ".runs")
	return Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, dbFileName),
	}, nil
}

// RegisterFlags registers the config-affecting persistent flags.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a "+FileName+" file (TOML)")
	fs.String("db", "", "Path to the run database")
}

// Load builds a Config by layering: defaults < config file < env <
// flags. The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *pflag.FlagSet) (Config, error) {
	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	cfg, err := load(explicit)
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

func load(explicit string) (Config, error) {
	def, err := Default()
	if err != nil {
		return def, err
	}

	v := viper.New()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("db_path", "")
	v.SetDefault("prefix", "")
	v.SetDefault("flags", []string{})
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	file, err := findFile(explicit, v.GetString("data_dir"))
	if err != nil {
		return def, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return def, fmt.Errorf("reading %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return def, fmt.Errorf("parsing config: %w", err)
	}
	cfg.File = file
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, dbFileName)
	}
	return cfg, nil
}

// findFile returns the config file to read: explicit when given
// (it must exist), else the first FileName found in the working
// directory or dataDir, else "".
func findFile(explicit, dataDir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, dir := range []string{".", dataDir} {
		p := filepath.Join(dir, FileName)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return "", nil
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "db":
			cfg.DBPath = f.Value.String()
		case "prefix":
			cfg.Prefix = f.Value.String()
		}
	})
}

// InterpolatedFlags returns the configured default flags for the
// run at runPath, with "<path>" replaced by the full path and
// "<name>" by its last component.
func (c Config) InterpolatedFlags(runPath string) []string {
	if len(c.Flags) == 0 {
		return nil
	}
	r := strings.NewReplacer(
		"<path>", runPath,
		"<name>", path.Base(runPath),
	)
	out := make([]string, len(c.Flags))
	for i, f := range c.Flags {
		out[i] = r.Replace(f)
	}
	return out
}

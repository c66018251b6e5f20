package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// UnresolvedPolicy decides what happens to a placeholder with no matching block
type UnresolvedPolicy string

const (
	UnresolvedKeep  UnresolvedPolicy = "keep"  // leave the placeholder verbatim
	UnresolvedWarn  UnresolvedPolicy = "warn"  // leave it and log a warning
	UnresolvedError UnresolvedPolicy = "error" // fail the block being resolved
)

// ParseUnresolvedPolicy validates a policy name
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch p := UnresolvedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case UnresolvedKeep, UnresolvedWarn, UnresolvedError:
		return p, nil
	}
	return "", fmt.Errorf("unknown unresolved policy %q (want keep, warn or error)", s)
}

// file mirrors the keys viper reads from defaults, lit.yaml and LIT_* env vars
type file struct {
	InputPath                 string   `mapstructure:"input_path"`
	OutputPath                string   `mapstructure:"output_path"`
	OutputSource              bool     `mapstructure:"output_source"`
	OutputSourceAbsolutePaths bool     `mapstructure:"output_source_absolute_paths"`
	Unresolved                string   `mapstructure:"unresolved"`
	MaxPasses                 int      `mapstructure:"max_passes"`
	Extensions                []string `mapstructure:"extensions"`
	ConfigDocument            string   `mapstructure:"config_document"`
}

// Init registers defaults and reads the optional lit.yaml and LIT_* environment
func Init(v *viper.Viper) error {
	v.SetDefault("input_path", ".")
	v.SetDefault("output_path", "")
	v.SetDefault("output_source", true)
	v.SetDefault("output_source_absolute_paths", false)
	v.SetDefault("unresolved", string(UnresolvedKeep))
	v.SetDefault("max_passes", 64)
	v.SetDefault("extensions", []string{".md"})
	v.SetDefault("config_document", "config.md")

	v.SetConfigName("lit")
	v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "lit"))
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("LIT")
	v.AutomaticEnv()

	// Try to read config, but don't fail if not found or malformed
	_ = v.ReadInConfig()
	return nil
}

// Load builds Options from everything viper knows about
func Load(v *viper.Viper) (Options, error) {
	var f file
	if err := v.Unmarshal(&f); err != nil {
		return Options{}, fmt.Errorf("decode config: %w", err)
	}

	policy, err := ParseUnresolvedPolicy(f.Unresolved)
	if err != nil {
		return Options{}, err
	}
	if f.MaxPasses < 1 {
		return Options{}, fmt.Errorf("max_passes must be positive, got %d", f.MaxPasses)
	}

	opts := Defaults()
	opts.inputPath = expandTilde(f.InputPath)
	opts.outputPath = normalizeOutputPath(expandTilde(f.OutputPath))
	opts.outputSource = f.OutputSource
	opts.outputSourceAbsolutePaths = f.OutputSourceAbsolutePaths
	opts.unresolved = policy
	opts.maxPasses = f.MaxPasses
	opts.extensions = append([]string(nil), f.Extensions...)
	opts.configDocument = f.ConfigDocument
	return opts, nil
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

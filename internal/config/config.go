// Package config loads project configuration for the shader compiler.
//
// Configuration lives in a YAML file named shadec.yaml, .shadec.yaml or
// .shadecrc. The file is searched for in the shader's directory and then in
// every parent directory.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"

	"github.com/HugoDaniel/shadec/internal/compiler"
	"github.com/HugoDaniel/shadec/internal/logger"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// GLSLVersion is written after #version (default "330 core")
	GLSLVersion string `yaml:"glslVersion,omitempty"`

	// FragmentOutput names the generated fragment color output
	FragmentOutput string `yaml:"fragmentOutput,omitempty"`

	// Attributes replaces the default vertex inputs, in location order
	Attributes []Attribute `yaml:"attributes,omitempty"`

	// EntryPoints renames the stage functions
	EntryPoints *EntryPoints `yaml:"entryPoints,omitempty"`

	// TreeShaking enables dead code elimination (default true)
	TreeShaking *bool `yaml:"treeShaking,omitempty"`

	// MinifyWhitespace prints compact GLSL (default false)
	MinifyWhitespace *bool `yaml:"minifyWhitespace,omitempty"`

	// LogLevel is a capnslog level name (default WARNING)
	LogLevel string `yaml:"logLevel,omitempty"`
}

// Attribute is one vertex input.
type Attribute struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// EntryPoints names the vertex and fragment functions.
type EntryPoints struct {
	Vertex   string `yaml:"vertex,omitempty"`
	Fragment string `yaml:"fragment,omitempty"`
}

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"shadec.yaml",
	".shadec.yaml",
	".shadecrc",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", tracerr.Wrap(err)
	}
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, tracerr.Errorf("%s: %v", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, tracerr.Errorf("%s: %v", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for i, a := range c.Attributes {
		if a.Name == "" || a.Type == "" {
			return tracerr.Errorf("attribute %d needs both a name and a type", i)
		}
	}
	if c.LogLevel != "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the configuration written by the init command: every
// field set to its default value.
func Default() *Config {
	opts := compiler.DefaultOptions()
	treeShaking, minify := opts.TreeShaking, opts.MinifyWhitespace
	cfg := &Config{
		GLSLVersion:      opts.GLSLVersion,
		FragmentOutput:   opts.FragmentOutput,
		EntryPoints:      &EntryPoints{Vertex: opts.EntryPoints.Vertex, Fragment: opts.EntryPoints.Fragment},
		TreeShaking:      &treeShaking,
		MinifyWhitespace: &minify,
		LogLevel:         "WARNING",
	}
	for _, a := range opts.Attributes {
		cfg.Attributes = append(cfg.Attributes, Attribute{Name: a.Name, Type: a.Type})
	}
	return cfg
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return data, nil
}

// ToOptions converts a Config to compiler.Options, using defaults for unset fields.
func (c *Config) ToOptions() compiler.Options {
	opts := compiler.DefaultOptions()
	if c == nil {
		return opts
	}

	if c.GLSLVersion != "" {
		opts.GLSLVersion = c.GLSLVersion
	}
	if c.FragmentOutput != "" {
		opts.FragmentOutput = c.FragmentOutput
	}
	if len(c.Attributes) > 0 {
		opts.Attributes = nil
		for _, a := range c.Attributes {
			opts.Attributes = append(opts.Attributes, compiler.Attribute{Name: a.Name, Type: a.Type})
		}
	}
	if c.EntryPoints != nil {
		if c.EntryPoints.Vertex != "" {
			opts.EntryPoints.Vertex = c.EntryPoints.Vertex
		}
		if c.EntryPoints.Fragment != "" {
			opts.EntryPoints.Fragment = c.EntryPoints.Fragment
		}
	}
	if c.TreeShaking != nil {
		opts.TreeShaking = *c.TreeShaking
	}
	if c.MinifyWhitespace != nil {
		opts.MinifyWhitespace = *c.MinifyWhitespace
	}
	return opts
}

// Level returns the configured log level, WARNING when unset.
func (c *Config) Level() string {
	if c == nil || c.LogLevel == "" {
		return "WARNING"
	}
	return strings.ToUpper(c.LogLevel)
}

// MergeOptions holds the CLI flags that override the config file.
// Empty strings and nil pointers mean the flag was not given.
type MergeOptions struct {
	GLSLVersion       string
	MinifyWhitespace  *bool
	NoTreeShaking     bool
	GenerateSourceMap bool
	SourceName        string
	LogLevel          string
}

// Merge merges CLI options with config file options.
// CLI options override config file options when specified.
func (c *Config) Merge(cli MergeOptions) compiler.Options {
	opts := c.ToOptions()

	if cli.GLSLVersion != "" {
		opts.GLSLVersion = cli.GLSLVersion
	}
	if cli.MinifyWhitespace != nil {
		opts.MinifyWhitespace = *cli.MinifyWhitespace
	}
	if cli.NoTreeShaking {
		opts.TreeShaking = false
	}
	opts.GenerateSourceMap = cli.GenerateSourceMap
	opts.SourceName = cli.SourceName
	return opts
}

// MergeLevel returns the log level after applying a CLI override.
func (c *Config) MergeLevel(cli MergeOptions) string {
	if cli.LogLevel != "" {
		return strings.ToUpper(cli.LogLevel)
	}
	return c.Level()
}

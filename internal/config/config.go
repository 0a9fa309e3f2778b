package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

type MakeCfg struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Command string   `yaml:"command" json:"command"` // Build tool executable (default: make)
	Args    []string `yaml:"args" json:"args"`       // Appended after --directory=<dir>
}

type HistoryCfg struct {
	DatabasePath string `yaml:"database_path" json:"database_path"` // SQLite removal history; empty disables
}

type MetricsCfg struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"` // Prometheus textfile output; empty disables
}

type LoggingCfg struct {
	File string `yaml:"file" json:"file"` // Optional JSON log file
	JSON bool   `yaml:"json" json:"json"`
}

type Config struct {
	PruneDirs       []string   `yaml:"prune_dirs" json:"prune_dirs"`
	TopLevelFiles   []string   `yaml:"top_level_files" json:"top_level_files"`
	TopLevelDirs    []string   `yaml:"top_level_dirs" json:"top_level_dirs"`
	MarkerDir       string     `yaml:"marker_dir" json:"marker_dir"`
	MarkerSiblings  []string   `yaml:"marker_siblings" json:"marker_siblings"`
	ExtraPatterns   []string   `yaml:"extra_patterns" json:"extra_patterns"` // doublestar globs relative to the target root
	RemoveEmptyRoot bool       `yaml:"remove_empty_root" json:"remove_empty_root"`
	Make            MakeCfg    `yaml:"make" json:"make"`
	History         HistoryCfg `yaml:"history" json:"history"`
	Metrics         MetricsCfg `yaml:"metrics" json:"metrics"`
	Logging         LoggingCfg `yaml:"logging" json:"logging"`
}

var (
	errNoMarker       = errors.New("marker_dir must be set")
	errInvalidName    = errors.New("entry name must be a single path component")
	errMarkerPruned   = errors.New("marker_dir cannot be in prune_dirs")
	errInvalidPattern = errors.New("invalid extra pattern")
	errNoMakeCommand  = errors.New("make.command must be set when make is enabled")
)

// Default returns the built-in CMake cleanup configuration
func Default() *Config {
	return &Config{
		PruneDirs: []string{".svn", ".git", "CVS"},
		TopLevelFiles: []string{
			"CMakeCache.txt",
			"CPackConfig.cmake",
			"CPackSourceConfig.cmake",
			"install_manifest.txt",
		},
		TopLevelDirs:   []string{"_CPack_Packages"},
		MarkerDir:      "CMakeFiles",
		MarkerSiblings: []string{"Makefile", "cmake_install.cmake"},
		Make: MakeCfg{
			Enabled: true,
			Command: "make",
			Args:    []string{"--quiet", "clean"},
		},
	}
}

// Load reads a YAML file on top of Default. An empty path yields the defaults.
func Load(cfgPath string) (*Config, error) {
	if cfgPath == "" {
		cfg := Default()
		return cfg, cfg.validateAndDefault()
	}

	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.MarkerDir == "" {
		return errNoMarker
	}

	lists := map[string][]string{
		"prune_dirs":      c.PruneDirs,
		"top_level_files": c.TopLevelFiles,
		"top_level_dirs":  c.TopLevelDirs,
		"marker_siblings": c.MarkerSiblings,
		"marker_dir":      {c.MarkerDir},
	}
	for key, names := range lists {
		for _, n := range names {
			if !validName(n) {
				return fmt.Errorf("%s %q: %w", key, n, errInvalidName)
			}
		}
	}

	for _, p := range c.PruneDirs {
		if p == c.MarkerDir {
			return errMarkerPruned
		}
	}

	for _, p := range c.ExtraPatterns {
		if err := validPattern(p); err != nil {
			return fmt.Errorf("%w %q: %v", errInvalidPattern, p, err)
		}
	}

	if c.Make.Enabled && strings.TrimSpace(c.Make.Command) == "" {
		return errNoMakeCommand
	}

	return nil
}

// validPattern rejects patterns doublestar cannot match. doublestar only
// reports a bad pattern once matching reaches the broken component, so the
// syntax is checked component by component with path.Match.
func validPattern(p string) error {
	if strings.TrimSpace(p) == "" || strings.HasPrefix(p, "/") {
		return errInvalidName
	}
	for _, comp := range strings.Split(p, "/") {
		if comp == "**" {
			continue
		}
		if _, err := path.Match(comp, ""); err != nil {
			return err
		}
	}
	return nil
}

func validName(n string) bool {
	if n == "" || n == "." || n == ".." {
		return false
	}
	return !strings.ContainsAny(n, `/\`)
}

// Rules returns the immutable name sets the sweeper works from
func (c *Config) Rules() Rules {
	return NewRules(c.PruneDirs, c.TopLevelFiles, c.TopLevelDirs,
		c.MarkerDir, c.MarkerSiblings, c.ExtraPatterns, c.RemoveEmptyRoot)
}

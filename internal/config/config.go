// Package config loads the settings of a docworld process: log level, sync
// protocol and the component types it knows about.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/schema/definition"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/sync"
)

var (
	ErrInvalid       = errors.New("config: invalid")
	ErrUnknownFormat = errors.New("config: unknown file format")
)

// Config describes a docworld process in JSON or YAML.
//
// Types holds named descriptor definitions that may refer to each other;
// Components maps every component type name to its definition, usually a
// ref to one of Types.
type Config struct {
	Log        LogConfig                 `json:"log" yaml:"log"`
	Sync       SyncConfig                `json:"sync" yaml:"sync"`
	Types      map[string]definition.Def `json:"types,omitempty" yaml:"types,omitempty"`
	Components map[string]definition.Def `json:"components" yaml:"components"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type SyncConfig struct {
	Protocol string `json:"protocol" yaml:"protocol"`
}

// Default returns a config with no component types.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: log.LevelInfo.String()},
		Sync: SyncConfig{Protocol: sync.ProtocolDiff.String()},
	}
}

// LoadYAML loads config from a YAML reader. Missing sections keep their
// defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c, c.Validate()
}

// LoadJSON loads config from a JSON reader.
func LoadJSON(r io.Reader) (*Config, error) {
	c := Default()
	if err := json.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c, c.Validate()
}

// Parse picks the decoder from the extension of name.
func Parse(name string, data []byte) (*Config, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return LoadYAML(strings.NewReader(string(data)))
	case ".json":
		return LoadJSON(strings.NewReader(string(data)))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// LoadFile reads and parses the config file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Validate checks the settings that do not need the type definitions to be
// compiled.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if _, err := sync.ParseProtocol(c.Sync.Protocol); err != nil {
		return fmt.Errorf("%w: sync.protocol: %v", ErrInvalid, err)
	}
	for name := range c.Components {
		if name == "" {
			return fmt.Errorf("%w: empty component name", ErrInvalid)
		}
	}
	return nil
}

func (c *Config) LogLevel() log.Level {
	l, _ := log.ParseLevel(c.Log.Level)
	return l
}

func (c *Config) Protocol() sync.Protocol {
	p, _ := sync.ParseProtocol(c.Sync.Protocol)
	return p
}

// Registry compiles the type definitions and registers one component type
// per entry of Components.
func (c *Config) Registry() (*registry.Registry, error) {
	lib, err := definition.Compile(c.Types)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	reg, _ := registry.New()
	for _, name := range names {
		d, err := lib.Build(c.Components[name])
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", name, err)
		}
		if err := reg.RegisterType(registry.Define(registry.TypeName(name), d)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

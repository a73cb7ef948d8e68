// Package config loads uiforge settings with koanf. Layers are applied
// lowest to highest precedence: built-in defaults, uiforge.yml (or the
// file given with --config), UIFORGE_ environment variables and finally
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// EnvPrefix marks environment variables read as configuration. A double
// underscore separates nested keys: UIFORGE_ARCHIVE__BUCKET sets
// archive.bucket.
const EnvPrefix = "UIFORGE_"

// FileNames are looked up, in order, in the working directory.
var FileNames = []string{"uiforge.yml", "uiforge.yaml"}

// Config is the complete uiforge configuration.
type Config struct {
	OutputDir string `koanf:"output_dir" yaml:"output_dir"`
	LogLevel  string `koanf:"log_level" yaml:"log_level"`
	LogFormat string `koanf:"log_format" yaml:"log_format"`
	Parallel  bool   `koanf:"parallel" yaml:"parallel"`

	Project    Project              `koanf:"project" yaml:"project"`
	Stages     map[string]Stage     `koanf:"stages" yaml:"stages"`
	Generators map[string]Generator `koanf:"generators" yaml:"generators,omitempty"`
	A2A        A2A                  `koanf:"a2a" yaml:"a2a"`
	Archive    Archive              `koanf:"archive" yaml:"archive"`
	Lineage    Lineage              `koanf:"lineage" yaml:"lineage"`
	MCP        MCP                  `koanf:"mcp" yaml:"mcp"`
}

// Project holds the defaults of a run's RunConfig.
type Project struct {
	Name         string `koanf:"name" yaml:"name"`
	PackagePath  string `koanf:"package_path" yaml:"package_path"`
	Framework    string `koanf:"framework" yaml:"framework"`
	TypeScript   bool   `koanf:"typescript" yaml:"typescript"`
	Description  string `koanf:"description" yaml:"description,omitempty"`
	DatabaseName string `koanf:"database_name" yaml:"database_name,omitempty"`
}

// Stage is the retry policy of a top-level stage and its sub-steps.
type Stage struct {
	Retry `koanf:",squash" yaml:",inline"`
	Steps map[string]Retry `koanf:"steps" yaml:"steps,omitempty"`
}

// Retry bounds the attempts of one stage or step.
type Retry struct {
	MaxRetries int                `koanf:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration      `koanf:"timeout" yaml:"timeout"`
	Backoff    time.Duration      `koanf:"backoff" yaml:"backoff"`
	Gates      map[string]float64 `koanf:"gates" yaml:"gates,omitempty"`
}

// Generator locates the A2A agent serving a stage.
type Generator struct {
	Endpoint string `koanf:"endpoint" yaml:"endpoint"`
}

// A2A configures the client used to reach generators.
type A2A struct {
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	APIKey  string        `koanf:"api_key" yaml:"api_key,omitempty"`
}

// Archive configures the optional upload of finished runs to S3-compatible
// storage.
type Archive struct {
	Enabled   bool   `koanf:"enabled" yaml:"enabled"`
	Endpoint  string `koanf:"endpoint" yaml:"endpoint"`
	Bucket    string `koanf:"bucket" yaml:"bucket"`
	Region    string `koanf:"region" yaml:"region,omitempty"`
	AccessKey string `koanf:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `koanf:"secret_key" yaml:"secret_key,omitempty"`
	UseSSL    bool   `koanf:"use_ssl" yaml:"use_ssl"`
	Prefix    string `koanf:"prefix" yaml:"prefix,omitempty"`
}

// Lineage selects the lineage store.
type Lineage struct {
	Backend string `koanf:"backend" yaml:"backend"`
	Path    string `koanf:"path" yaml:"path,omitempty"`
}

// MCP configures the MCP server.
type MCP struct {
	Name string `koanf:"name" yaml:"name"`
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set.
	Path string

	// Dir is searched for FileNames when Path is empty. Defaults to ".".
	Dir string

	// Overrides are applied last, keyed like the file (project.name).
	// The CLI passes the flags the user actually set.
	Overrides map[string]any
}

// Load builds a Config from every layer and validates it. Validation
// failures are returned as *orchestrator.ConfigurationError.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	loadDefaults(k)

	path, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	for key, v := range opts.Overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config: set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(opts LoadOptions) (string, error) {
	if opts.Path != "" {
		if _, err := os.Stat(opts.Path); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return opts.Path, nil
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config: %w", err)
		}
	}
	return "", nil
}

// envTransform maps UIFORGE_ARCHIVE__USE_SSL to archive.use_ssl.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// RunConfig returns the project section as run settings, with defaults
// filled in.
func (c *Config) RunConfig() orchestrator.RunConfig {
	return orchestrator.RunConfig{
		AgentMode:    orchestrator.AgentModePipeline,
		ProjectName:  c.Project.Name,
		PackagePath:  c.Project.PackagePath,
		Framework:    artifact.Framework(c.Project.Framework),
		TypeScript:   c.Project.TypeScript,
		Description:  c.Project.Description,
		DatabaseName: c.Project.DatabaseName,
	}.WithDefaults()
}

// Policies returns the retry policy of every stage and sub-step, keyed as
// generator.PolicyKey does.
func (c *Config) Policies() map[string]orchestrator.Policy {
	out := generator.DefaultPolicies()
	for name, st := range c.Stages {
		out[name] = st.Retry.policy()
		for step, r := range st.Steps {
			out[generator.PolicyKey(orchestrator.StageName(name), orchestrator.StageName(step))] = r.policy()
		}
	}
	return out
}

func (r Retry) policy() orchestrator.Policy {
	p := orchestrator.Policy{MaxRetries: r.MaxRetries, Timeout: r.Timeout, Backoff: r.Backoff}
	if len(r.Gates) > 0 {
		p.GateThresholds = make(orchestrator.Thresholds, len(r.Gates))
		for k, v := range r.Gates {
			p.GateThresholds[k] = v
		}
	}
	return p
}

// Endpoints returns the configured generator endpoint of each stage.
func (c *Config) Endpoints() map[orchestrator.StageName]string {
	out := make(map[orchestrator.StageName]string, len(c.Generators))
	for name, g := range c.Generators {
		if g.Endpoint != "" {
			out[orchestrator.StageName(name)] = g.Endpoint
		}
	}
	return out
}

// RunDir is where the artifacts of run id are persisted.
func (c *Config) RunDir(id string) string {
	return filepath.Join(c.OutputDir, id)
}

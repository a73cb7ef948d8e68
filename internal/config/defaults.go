package config

import (
	"bytes"
	"fmt"

	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// Default values of the top-level keys.
const (
	DefaultOutputDir = "runs"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultMCPName   = "uiforge"
)

// Default returns the configuration used when no file, environment
// variable or flag says otherwise.
func Default() Config {
	cfg := Config{
		OutputDir: DefaultOutputDir,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Parallel:  true,
		Project: Project{
			Name:        orchestrator.DefaultProjectName,
			PackagePath: orchestrator.DefaultPackagePath,
			Framework:   string(artifact.FrameworkVue3),
			TypeScript:  true,
		},
		Stages:  make(map[string]Stage, len(generator.Stages)),
		Lineage: Lineage{Backend: lineage.BackendMemory},
		MCP:     MCP{Name: DefaultMCPName},
	}
	policies := generator.DefaultPolicies()
	for _, s := range generator.Stages {
		st := Stage{Retry: retryOf(policies[string(s)])}
		for _, skill := range generator.Skills(s) {
			if skill == string(s) {
				continue
			}
			if st.Steps == nil {
				st.Steps = make(map[string]Retry)
			}
			step := skill[len(s)+1:]
			st.Steps[step] = retryOf(policies[skill])
		}
		cfg.Stages[string(s)] = st
	}
	return cfg
}

func retryOf(p orchestrator.Policy) Retry {
	return Retry{MaxRetries: p.MaxRetries, Timeout: p.Timeout, Backoff: p.Backoff}
}

// loadDefaults seeds k with Default, one flat key per value so that
// every later layer can override single fields.
func loadDefaults(k *koanf.Koanf) {
	for key, v := range defaultValues() {
		_ = k.Set(key, v)
	}
}

func defaultValues() map[string]any {
	d := Default()
	out := map[string]any{
		"output_dir":            d.OutputDir,
		"log_level":             d.LogLevel,
		"log_format":            d.LogFormat,
		"parallel":              d.Parallel,
		"project.name":          d.Project.Name,
		"project.package_path":  d.Project.PackagePath,
		"project.framework":     d.Project.Framework,
		"project.typescript":    d.Project.TypeScript,
		"project.description":   d.Project.Description,
		"project.database_name": d.Project.DatabaseName,
		"a2a.timeout":           d.A2A.Timeout,
		"archive.enabled":       d.Archive.Enabled,
		"archive.use_ssl":       d.Archive.UseSSL,
		"lineage.backend":       d.Lineage.Backend,
		"mcp.name":              d.MCP.Name,
	}
	for name, st := range d.Stages {
		setRetry(out, "stages."+name, st.Retry)
		for step, r := range st.Steps {
			setRetry(out, fmt.Sprintf("stages.%s.steps.%s", name, step), r)
		}
	}
	return out
}

func setRetry(out map[string]any, prefix string, r Retry) {
	out[prefix+".max_retries"] = r.MaxRetries
	out[prefix+".timeout"] = r.Timeout
	out[prefix+".backoff"] = r.Backoff
}

const fileHeader = `# uiforge configuration.
#
# Every key can be overridden with an environment variable: prefix it with
# UIFORGE_ and separate nested keys with a double underscore, e.g.
# UIFORGE_PROJECT__FRAMEWORK=vue2 or UIFORGE_ARCHIVE__BUCKET=runs.
#
# Point a stage at a remote generator with
#   generators:
#     wireframe_html:
#       endpoint: http://localhost:9102
# Stages without an endpoint cannot run unless --dry-run is given.

`

// DefaultYAML renders Default as a commented uiforge.yml.
func DefaultYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return nil, fmt.Errorf("config: render defaults: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config: render defaults: %w", err)
	}
	return buf.Bytes(), nil
}

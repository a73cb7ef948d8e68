package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, "memory", cfg.Lineage.Backend)
	assert.Empty(t, cfg.Endpoints())

	rc := cfg.RunConfig()
	assert.Equal(t, orchestrator.DefaultProjectName, rc.ProjectName)
	assert.Equal(t, artifact.FrameworkVue3, rc.Framework)
	assert.Equal(t, "com.demo", rc.PackagePath)
	assert.True(t, rc.TypeScript)

	assert.Equal(t, generator.DefaultPolicies(), cfg.Policies())
}

func TestLoad_TypeScriptCanBeTurnedOff(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "uiforge.yml", "project:\n  typescript: false\n")
	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.False(t, cfg.RunConfig().TypeScript)

	cfg, err = Load(LoadOptions{
		Dir:       t.TempDir(),
		Overrides: map[string]any{"project.typescript": false},
	})
	require.NoError(t, err)
	assert.False(t, cfg.RunConfig().TypeScript)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "uiforge.yml", `
output_dir: out
project:
  name: shop_admin
  framework: vue2
  typescript: true
stages:
  html_to_vue:
    max_retries: 5
    gates:
      min_files: 4
  html_to_api_doc:
    steps:
      document_rendering:
        max_retries: 6
        timeout: 90s
generators:
  wireframe_generator:
    endpoint: http://localhost:9101
`)
	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, filepath.Join("out", "abc"), cfg.RunDir("abc"))
	rc := cfg.RunConfig()
	assert.Equal(t, "shop_admin", rc.ProjectName)
	assert.Equal(t, artifact.FrameworkVue2, rc.Framework)
	assert.True(t, rc.TypeScript)

	p := cfg.Policies()
	vue := p[string(orchestrator.StageFrontend)]
	assert.Equal(t, 5, vue.MaxRetries)
	assert.Equal(t, 10*time.Minute, vue.Timeout, "unset keys keep their default")
	assert.Equal(t, 4.0, vue.GateThresholds["min_files"])

	render := p["html_to_api_doc.document_rendering"]
	assert.Equal(t, 6, render.MaxRetries)
	assert.Equal(t, 90*time.Second, render.Timeout)
	assert.Equal(t, time.Second, render.Backoff)
	assert.Equal(t, 3, p["html_to_api_doc.feature_analysis"].MaxRetries)

	assert.Equal(t, map[orchestrator.StageName]string{
		orchestrator.StageWireframe: "http://localhost:9101",
	}, cfg.Endpoints())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yaml", `
log_level: warn
project:
  name: from_file
archive:
  bucket: from_file
`)
	t.Setenv("UIFORGE_PROJECT__NAME", "from_env")
	t.Setenv("UIFORGE_ARCHIVE__BUCKET", "from_env")
	t.Setenv("UIFORGE_STAGES__HTML_TO_SPRINGBOOT__MAX_RETRIES", "7")

	cfg, err := Load(LoadOptions{
		Path:      path,
		Overrides: map[string]any{"project.name": "from_flag"},
	})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "from_flag", cfg.Project.Name)
	assert.Equal(t, "from_env", cfg.Archive.Bucket)
	assert.Equal(t, 7, cfg.Policies()[string(orchestrator.StageBackend)].MaxRetries)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yml")})
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "uiforge.yaml", "project: [unclosed\n")
	_, err := Load(LoadOptions{Dir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uiforge.yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"framework", func(c *Config) { c.Project.Framework = "react" }, "framework"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"unknown stage", func(c *Config) { c.Stages["html_to_react"] = Stage{Retry: Retry{MaxRetries: 1}} }, "stages.html_to_react"},
		{"zero retries", func(c *Config) {
			st := c.Stages[string(orchestrator.StageFrontend)]
			st.MaxRetries = 0
			c.Stages[string(orchestrator.StageFrontend)] = st
		}, "stages.html_to_vue.max_retries"},
		{"unknown step", func(c *Config) {
			st := c.Stages[string(orchestrator.StageAPIDoc)]
			st.Steps["basic_files"] = Retry{MaxRetries: 1}
		}, "stages.html_to_api_doc.steps.basic_files"},
		{"negative gate", func(c *Config) {
			st := c.Stages[string(orchestrator.StagePrototype)]
			st.Gates = map[string]float64{"min_elements": -1}
			c.Stages[string(orchestrator.StagePrototype)] = st
		}, "stages.wireframe_html.gates.min_elements"},
		{"endpoint scheme", func(c *Config) {
			c.Generators = map[string]Generator{"html_to_vue": {Endpoint: "localhost:9104"}}
		}, "generators.html_to_vue.endpoint"},
		{"kuzu path", func(c *Config) { c.Lineage.Backend = "kuzu" }, "lineage.path"},
		{"lineage backend", func(c *Config) { c.Lineage.Backend = "neo4j" }, "lineage.backend"},
		{"archive bucket", func(c *Config) {
			c.Archive = Archive{Enabled: true, Endpoint: "localhost:9000"}
		}, "archive.bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ce *orchestrator.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Stages, len(generator.Stages))
	assert.Len(t, cfg.Stages[string(orchestrator.StageBackend)].Steps, 3)
	assert.Empty(t, cfg.Stages[string(orchestrator.StageFrontend)].Steps)
}

func TestDefaultYAML_RoundTrip(t *testing.T) {
	data, err := DefaultYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "UIFORGE_")

	dir := t.TempDir()
	writeConfig(t, dir, "uiforge.yml", string(data))
	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, generator.DefaultPolicies(), cfg.Policies())
	assert.Equal(t, DefaultMCPName, cfg.MCP.Name)
}

package orchestrator

import (
	"regexp"
	"strings"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

const (
	// DefaultProjectName is used when a run is started without a project.
	DefaultProjectName = "auto_generated_project"

	// DefaultPackagePath is the Java base package for generated backends.
	DefaultPackagePath = "com.demo"

	// AgentModePipeline is the only supported agent mode.
	AgentModePipeline = "pipeline"
)

var (
	projectNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)
	packagePathRe = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)
	javaIdentRe   = regexp.MustCompile(`[^a-z0-9_]`)
)

// RunConfig holds the per-run generation settings.
type RunConfig struct {
	// AgentMode selects the workflow; only "pipeline" is supported.
	AgentMode string `json:"agent_mode" yaml:"agent_mode"`

	// ProjectName names the generated project and its artifacts.
	ProjectName string `json:"project_name" yaml:"project_name"`

	// PackagePath is the base Java package of the backend (e.g. com.demo).
	PackagePath string `json:"package_path" yaml:"package_path"`

	// Framework is the frontend target, vue2 or vue3.
	Framework artifact.Framework `json:"framework" yaml:"framework"`

	// TypeScript selects TypeScript over JavaScript for the frontend.
	TypeScript bool `json:"typescript" yaml:"typescript"`

	// Description is free text about the project fed to API-doc generation.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// DatabaseName is the schema name used by the backend.
	DatabaseName string `json:"database_name" yaml:"database_name"`
}

// WithDefaults fills unset fields and normalizes the package path to lower
// case. It never replaces a value that was set, valid or not.
func (c RunConfig) WithDefaults() RunConfig {
	if c.AgentMode == "" {
		c.AgentMode = AgentModePipeline
	}
	if c.ProjectName == "" {
		c.ProjectName = DefaultProjectName
	}
	if c.PackagePath == "" {
		c.PackagePath = DefaultPackagePath
	}
	c.PackagePath = strings.ToLower(c.PackagePath)
	if c.Framework == "" {
		c.Framework = artifact.FrameworkVue3
	}
	if c.DatabaseName == "" {
		c.DatabaseName = strings.ToLower(c.ProjectName)
	}
	return c
}

// Validate returns a *ConfigurationError for the first invalid field.
func (c RunConfig) Validate() error {
	if c.AgentMode != AgentModePipeline {
		return &ConfigurationError{Field: "agent", Value: c.AgentMode, Reason: `only "pipeline" is supported`}
	}
	if !projectNameRe.MatchString(c.ProjectName) {
		return &ConfigurationError{
			Field:  "project",
			Value:  c.ProjectName,
			Reason: "must start with a letter and contain only letters, digits, '_' or '-' (max 64)",
		}
	}
	if !packagePathRe.MatchString(c.PackagePath) {
		return &ConfigurationError{
			Field:  "package",
			Value:  c.PackagePath,
			Reason: "must be a dotted Java package such as com.demo",
		}
	}
	if !c.Framework.Valid() {
		return &ConfigurationError{Field: "framework", Value: string(c.Framework), Reason: "must be vue2 or vue3"}
	}
	if !packagePathRe.MatchString(c.DatabaseName) && !projectNameRe.MatchString(c.DatabaseName) {
		return &ConfigurationError{Field: "database", Value: c.DatabaseName, Reason: "must be a plain identifier"}
	}
	return nil
}

// JavaPackage returns the backend root package: the base package followed
// by the project name reduced to a Java identifier.
func (c RunConfig) JavaPackage() string {
	seg := javaIdentRe.ReplaceAllString(strings.ToLower(c.ProjectName), "")
	if seg == "" {
		return c.PackagePath
	}
	return c.PackagePath + "." + seg
}

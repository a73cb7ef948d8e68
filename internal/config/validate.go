package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dusk-indust/uiforge/internal/generator"
	"github.com/dusk-indust/uiforge/internal/lineage"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate returns an *orchestrator.ConfigurationError for the first
// invalid value. Run settings are checked as a run would check them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return &orchestrator.ConfigurationError{Field: "output_dir", Reason: "must not be empty"}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return &orchestrator.ConfigurationError{Field: "log_level", Value: c.LogLevel, Reason: "must be one of " + strings.Join(logLevels, ", ")}
	}
	if !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		return &orchestrator.ConfigurationError{Field: "log_format", Value: c.LogFormat, Reason: "must be text or json"}
	}
	if err := c.RunConfig().Validate(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateGenerators(); err != nil {
		return err
	}
	if c.A2A.Timeout < 0 {
		return &orchestrator.ConfigurationError{Field: "a2a.timeout", Value: c.A2A.Timeout.String(), Reason: "must not be negative"}
	}
	switch c.Lineage.Backend {
	case lineage.BackendMemory:
	case lineage.BackendKuzu:
		if c.Lineage.Path == "" {
			return &orchestrator.ConfigurationError{Field: "lineage.path", Reason: "required by the kuzu backend"}
		}
	default:
		return &orchestrator.ConfigurationError{Field: "lineage.backend", Value: c.Lineage.Backend, Reason: "must be memory or kuzu"}
	}
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			return &orchestrator.ConfigurationError{Field: "archive.endpoint", Reason: "required when archiving is enabled"}
		}
		if c.Archive.Bucket == "" {
			return &orchestrator.ConfigurationError{Field: "archive.bucket", Reason: "required when archiving is enabled"}
		}
		if strings.Contains(c.Archive.Endpoint, "://") {
			return &orchestrator.ConfigurationError{Field: "archive.endpoint", Value: c.Archive.Endpoint, Reason: "must be host[:port] without a scheme; use archive.use_ssl"}
		}
	}
	return nil
}

func (c *Config) validateStages() error {
	for name, st := range c.Stages {
		stage := orchestrator.StageName(name)
		if !slices.Contains(generator.Stages, stage) {
			return &orchestrator.ConfigurationError{Field: "stages." + name, Reason: "unknown stage"}
		}
		if err := st.Retry.validate("stages." + name); err != nil {
			return err
		}
		skills := generator.Skills(stage)
		for step, r := range st.Steps {
			field := fmt.Sprintf("stages.%s.steps.%s", name, step)
			if !slices.Contains(skills, generator.Skill(stage, orchestrator.StageName(step))) {
				return &orchestrator.ConfigurationError{Field: field, Reason: "unknown step"}
			}
			if err := r.validate(field); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r Retry) validate(field string) error {
	if r.MaxRetries < 1 {
		return &orchestrator.ConfigurationError{Field: field + ".max_retries", Value: fmt.Sprint(r.MaxRetries), Reason: "must be at least 1"}
	}
	if r.Timeout < 0 {
		return &orchestrator.ConfigurationError{Field: field + ".timeout", Value: r.Timeout.String(), Reason: "must not be negative"}
	}
	if r.Backoff < 0 {
		return &orchestrator.ConfigurationError{Field: field + ".backoff", Value: r.Backoff.String(), Reason: "must not be negative"}
	}
	for name, v := range r.Gates {
		if v < 0 {
			return &orchestrator.ConfigurationError{Field: field + ".gates." + name, Value: fmt.Sprint(v), Reason: "must not be negative"}
		}
	}
	return nil
}

func (c *Config) validateGenerators() error {
	for name, g := range c.Generators {
		field := "generators." + name
		if !slices.Contains(generator.Stages, orchestrator.StageName(name)) {
			return &orchestrator.ConfigurationError{Field: field, Reason: "unknown stage"}
		}
		if g.Endpoint == "" {
			continue
		}
		u, err := url.Parse(g.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &orchestrator.ConfigurationError{Field: field + ".endpoint", Value: g.Endpoint, Reason: "must be an http(s) URL"}
		}
	}
	return nil
}

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/artifact"
)

func TestRunConfig_WithDefaults(t *testing.T) {
	cfg := RunConfig{PackagePath: "Com.Acme"}.WithDefaults()

	assert.Equal(t, AgentModePipeline, cfg.AgentMode)
	assert.Equal(t, DefaultProjectName, cfg.ProjectName)
	assert.Equal(t, "com.acme", cfg.PackagePath)
	assert.Equal(t, artifact.FrameworkVue3, cfg.Framework)
	assert.Equal(t, DefaultProjectName, cfg.DatabaseName)
	require.NoError(t, cfg.Validate())
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   RunConfig
		field string
	}{
		{"agent mode", RunConfig{AgentMode: "chat"}, "agent"},
		{"project digit", RunConfig{ProjectName: "1shop"}, "project"},
		{"project spaces", RunConfig{ProjectName: "my shop"}, "project"},
		{"package", RunConfig{PackagePath: "com..demo"}, "package"},
		{"framework", RunConfig{Framework: "react"}, "framework"},
		{"database", RunConfig{DatabaseName: "drop table"}, "database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.WithDefaults().Validate()
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRunConfig_JavaPackage(t *testing.T) {
	assert.Equal(t, "com.demo.myshop", RunConfig{PackagePath: "com.demo", ProjectName: "My-Shop"}.JavaPackage())
	assert.Equal(t, "com.demo.shop_v2", RunConfig{PackagePath: "com.demo", ProjectName: "shop_v2"}.JavaPackage())
}

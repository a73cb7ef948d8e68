//go:build e2e

package e2e

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/orchestrator"
	"github.com/dusk-indust/uiforge/internal/runner"
	"github.com/dusk-indust/uiforge/internal/runstore"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// goldenFiles maps run directory files to golden filenames.
var goldenFiles = []struct {
	file   string
	golden string
}{
	{runstore.WireframeFile, "wireframe.md"},
	{runstore.PrototypeFile, "prototype.html"},
	{"api/golden_shop_api_doc.md", "api_doc.md"},
	{runstore.OpenAPIFile, "openapi.yaml"},
}

// runPipelineForGolden runs the template pipeline over A2A and returns the
// run directory.
func runPipelineForGolden(t *testing.T) string {
	t.Helper()

	cfg := loadConfig(t, t.TempDir(), allEndpoints(t))
	rc := cfg.RunConfig()
	rc.ProjectName = "golden_shop"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out, err := runner.New(cfg).Run(ctx, runner.Request{Image: fixtureImage(), Config: rc})
	require.NoError(t, err)
	require.Equal(t, orchestrator.RunSucceeded, out.Result.Run.Status)
	return out.Dir
}

// TestGolden compares the run output against golden files. If golden files
// do not exist, the test is skipped with a message to run with -update.
func TestGolden(t *testing.T) {
	runDir := runPipelineForGolden(t)
	gDir := goldenDir()

	for _, g := range goldenFiles {
		t.Run(g.golden, func(t *testing.T) {
			golden, err := os.ReadFile(filepath.Join(gDir, g.golden))
			if os.IsNotExist(err) {
				t.Skipf("golden file %s not found; run with -update to generate", g.golden)
				return
			}
			require.NoError(t, err)

			actual, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(g.file)))
			require.NoError(t, err)

			assert.Equal(t, string(golden), string(actual),
				"output for %s does not match golden file", g.file)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current pipeline output.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	runDir := runPipelineForGolden(t)
	gDir := goldenDir()
	require.NoError(t, os.MkdirAll(gDir, 0o755))

	for _, g := range goldenFiles {
		data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(g.file)))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(gDir, g.golden), data, 0o644))
		t.Logf("updated %s", g.golden)
	}
}

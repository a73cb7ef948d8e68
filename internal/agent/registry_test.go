package agent

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/a2a"
)

func TestRegistry_Probe(t *testing.T) {
	g := testAgent()
	ts := httptest.NewServer(a2a.NewServer(g.Card(), g, nil).Handler())
	defer ts.Close()

	dead := httptest.NewServer(nil)
	deadURL := dead.URL
	dead.Close()

	reg := NewRegistry(a2a.NewHTTPClient(), 2)
	statuses, err := reg.Probe(context.Background(), []Target{
		{Name: "wireframe_generator", Endpoint: ts.URL, Skills: []string{"wireframe_generator"}},
		{Name: "html_to_springboot", Endpoint: ts.URL, Skills: []string{"html_to_springboot.basic_files"}},
		{Name: "html_to_api_doc", Endpoint: deadURL, Skills: []string{"html_to_api_doc.feature_analysis"}},
	})
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byName := map[string]Status{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.Equal(t, "html_to_api_doc", statuses[0].Name, "sorted by name")

	wf := byName["wireframe_generator"]
	assert.True(t, wf.Ready())
	assert.Equal(t, "test-agent", wf.Agent)

	sb := byName["html_to_springboot"]
	assert.True(t, sb.Reachable)
	assert.False(t, sb.Ready())
	assert.Equal(t, []string{"html_to_springboot.basic_files"}, sb.Missing)

	api := byName["html_to_api_doc"]
	assert.False(t, api.Reachable)
	assert.NotEmpty(t, api.Error)
}

func TestRegistry_ProbeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRegistry(a2a.NewHTTPClient(), 0).Probe(ctx, []Target{{Name: "x", Endpoint: "http://127.0.0.1:1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

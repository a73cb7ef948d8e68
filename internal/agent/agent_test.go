package agent

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/uiforge/internal/a2a"
)

func echoSkill(_ context.Context, msg a2a.Message) ([]a2a.Part, error) {
	return []a2a.Part{a2a.TextPart(strings.ToUpper(msg.Text()))}, nil
}

func failSkill(context.Context, a2a.Message) ([]a2a.Part, error) {
	return nil, errors.New("model unavailable")
}

func testAgent() *GeneratorAgent {
	return NewGeneratorAgent("test-agent", "0.1.0", []Skill{
		{ID: "wireframe_generator", Run: echoSkill},
		{ID: "html_to_vue", Run: failSkill},
	}, nil)
}

func send(skill string, extra ...a2a.Part) a2a.SendMessageRequest {
	parts := append([]a2a.Part{a2a.TextPart(skill)}, extra...)
	return a2a.SendMessageRequest{
		Message:       a2a.Message{MessageID: "m", Role: a2a.RoleUser, Parts: parts},
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	}
}

func TestGeneratorAgent_Card(t *testing.T) {
	card := testAgent().Card()
	assert.Equal(t, "test-agent", card.Name)
	require.Len(t, card.Skills, 2)
	assert.Equal(t, "html_to_vue", card.Skills[0].ID)
	assert.Equal(t, "wireframe_generator", card.Skills[1].ID)
}

func TestGeneratorAgent_CompletesTask(t *testing.T) {
	g := testAgent()
	task, err := g.HandleSendMessage(context.Background(), send("wireframe_generator", a2a.TextPart("login")))
	require.NoError(t, err)

	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.Parts(), 1)
	assert.Equal(t, "WIREFRAME_GENERATOR\nLOGIN", task.Parts()[0].Text)

	stored, err := g.HandleGetTask(context.Background(), a2a.GetTaskRequest{ID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, task.ID, stored.ID)
}

func TestGeneratorAgent_SkillErrorFailsTask(t *testing.T) {
	task, err := testAgent().HandleSendMessage(context.Background(), send("html_to_vue"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	assert.Equal(t, "model unavailable", task.StatusText())
	assert.Empty(t, task.Artifacts)
}

func TestGeneratorAgent_UnknownSkill(t *testing.T) {
	_, err := testAgent().HandleSendMessage(context.Background(), send("html_to_react"))
	assert.ErrorIs(t, err, a2a.ErrUnsupportedSkill)
}

func TestGeneratorAgent_CancelRunningTask(t *testing.T) {
	started := make(chan struct{})
	g := NewGeneratorAgent("slow", "0.1.0", []Skill{{
		ID: "slow",
		Run: func(ctx context.Context, _ a2a.Message) ([]a2a.Part, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}, nil)

	done := make(chan *a2a.Task, 1)
	go func() {
		task, _ := g.HandleSendMessage(context.Background(), send("slow"))
		done <- task
	}()
	<-started

	var id string
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		for k := range g.running {
			id = k
		}
		return id != ""
	}, time.Second, 5*time.Millisecond)

	canceled, err := g.HandleCancelTask(context.Background(), a2a.CancelTaskRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCanceled, canceled.Status.State)

	select {
	case task := <-done:
		require.NotNil(t, task)
		assert.Equal(t, a2a.TaskStateCanceled, task.Status.State)
	case <-time.After(5 * time.Second):
		t.Fatal("skill was not canceled")
	}
}

func TestGeneratorAgent_OverHTTP(t *testing.T) {
	g := testAgent()
	ts := httptest.NewServer(a2a.NewServer(g.Card(), g, nil).Handler())
	defer ts.Close()

	c := a2a.NewHTTPClient()
	task, err := c.SendMessage(context.Background(), ts.URL, send("wireframe_generator"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)

	_, err = c.SendMessage(context.Background(), ts.URL, send("nope"))
	var rpcErr *a2a.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, a2a.ErrCodeUnsupportedSkill, rpcErr.Code)
}

package a2a

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStore_CreateGetUpdate(t *testing.T) {
	s := NewTaskStore()
	id := NewTaskID()
	require.NoError(t, s.Create(Task{ID: id, Status: TaskStatus{State: TaskStateSubmitted}}))
	assert.Error(t, s.Create(Task{ID: id}), "duplicate IDs are rejected")

	require.NoError(t, s.Update(id, func(t *Task) {
		t.Status.State = TaskStateCompleted
		t.Artifacts = append(t.Artifacts, Artifact{Name: "out", Parts: []Part{TextPart("x")}})
	}))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, got.Status.State)
	require.Len(t, got.Artifacts, 1)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, s.Update("missing", func(*Task) {}), ErrTaskNotFound)
}

func TestTaskStore_GetReturnsCopy(t *testing.T) {
	s := NewTaskStore()
	require.NoError(t, s.Create(Task{
		ID:        "t",
		Artifacts: []Artifact{{Parts: []Part{{Raw: []byte("abc")}}}},
	}))

	got, err := s.Get("t")
	require.NoError(t, err)
	got.Artifacts[0].Parts[0].Raw[0] = 'z'
	got.Artifacts[0].Name = "changed"

	again, err := s.Get("t")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Artifacts[0].Parts[0].Raw)
	assert.Empty(t, again.Artifacts[0].Name)
}

func TestTaskStore_Concurrent(t *testing.T) {
	s := NewTaskStore()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewTaskID()
			assert.NoError(t, s.Create(Task{ID: id}))
			_, err := s.Get(id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestMessage_TextAndMetadata(t *testing.T) {
	p, err := DataPart(map[string]int{"attempt": 2})
	require.NoError(t, err)
	p, err = p.WithMetadata(map[string]string{"role": "config"})
	require.NoError(t, err)

	m := Message{Parts: []Part{TextPart("html_to_vue"), p, TextPart("extra")}}
	assert.Equal(t, "html_to_vue\nextra", m.Text())
	assert.True(t, p.IsData())
	assert.JSONEq(t, `{"role":"config"}`, string(p.Metadata))
}

package a2a

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// NewTaskID returns a random task identifier.
func NewTaskID() string { return uuid.NewString() }

// TaskStore is a concurrency-safe in-memory store for agent-side tasks.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTaskStore returns an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*Task)}
}

// Create stores a new task. IDs must be unique.
func (s *TaskStore) Create(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %q already exists", task.ID)
	}
	s.tasks[task.ID] = copyTask(&task)
	return nil
}

// Get returns a copy of the task with id. The copy is safe to mutate.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return copyTask(t), nil
}

// Update applies fn to the stored task under the write lock.
func (s *TaskStore) Update(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	fn(t)
	return nil
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func copyTask(src *Task) *Task {
	dst := *src
	if src.Artifacts != nil {
		dst.Artifacts = make([]Artifact, len(src.Artifacts))
		for i, a := range src.Artifacts {
			a.Parts = copyParts(a.Parts)
			dst.Artifacts[i] = a
		}
	}
	if src.History != nil {
		dst.History = make([]Message, len(src.History))
		for i, m := range src.History {
			dst.History[i] = copyMessage(m)
		}
	}
	if src.Status.Message != nil {
		m := copyMessage(*src.Status.Message)
		dst.Status.Message = &m
	}
	return &dst
}

func copyMessage(src Message) Message {
	dst := src
	dst.Parts = copyParts(src.Parts)
	dst.Metadata = copyRaw(src.Metadata)
	return dst
}

func copyParts(src []Part) []Part {
	if src == nil {
		return nil
	}
	dst := make([]Part, len(src))
	for i, p := range src {
		if p.Raw != nil {
			p.Raw = append([]byte(nil), p.Raw...)
		}
		p.Data = copyRaw(p.Data)
		p.Metadata = copyRaw(p.Metadata)
		dst[i] = p
	}
	return dst
}

func copyRaw(src json.RawMessage) json.RawMessage {
	if src == nil {
		return nil
	}
	return append(json.RawMessage(nil), src...)
}

// Package agent serves generator skills over A2A and probes remote
// generator agents.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/dusk-indust/uiforge/internal/a2a"
)

var _ a2a.Handler = (*GeneratorAgent)(nil)

// SkillFunc produces the response parts for one message addressed to a
// skill. The message's first text part is the skill ID.
type SkillFunc func(ctx context.Context, msg a2a.Message) ([]a2a.Part, error)

// Skill is one capability a GeneratorAgent offers.
type Skill struct {
	ID          string
	Description string
	Run         SkillFunc
}

// GeneratorAgent is an A2A handler dispatching messages to skills by name.
// Every message runs to completion before HandleSendMessage returns, so
// tasks it reports are always terminal.
type GeneratorAgent struct {
	card   a2a.AgentCard
	skills map[string]SkillFunc
	store  *a2a.TaskStore
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewGeneratorAgent creates an agent named name offering skills. A nil
// logger discards output.
func NewGeneratorAgent(name, version string, skills []Skill, logger *slog.Logger) *GeneratorAgent {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &GeneratorAgent{
		skills:  make(map[string]SkillFunc, len(skills)),
		store:   a2a.NewTaskStore(),
		logger:  logger,
		running: make(map[string]context.CancelFunc),
	}
	g.card = a2a.AgentCard{
		Name:               name,
		Description:        "uiforge generator agent",
		Version:            version,
		DefaultInputModes:  []string{"text/plain", "application/json", "image/png", "image/jpeg"},
		DefaultOutputModes: []string{"text/plain", "application/json"},
	}
	for _, s := range skills {
		g.skills[s.ID] = s.Run
		g.card.Skills = append(g.card.Skills, a2a.AgentSkill{ID: s.ID, Name: s.ID, Description: s.Description})
	}
	sort.Slice(g.card.Skills, func(i, j int) bool { return g.card.Skills[i].ID < g.card.Skills[j].ID })
	return g
}

// Card returns the agent card.
func (g *GeneratorAgent) Card() a2a.AgentCard { return g.card }

// Serve exposes the agent on ln until ctx is done.
func (g *GeneratorAgent) Serve(ctx context.Context, ln net.Listener) error {
	card := g.card
	card.URL = "http://" + ln.Addr().String()
	return a2a.NewServer(card, g, g.logger).Serve(ctx, ln)
}

// HandleSendMessage runs the skill named by the message. A skill error
// yields a failed task rather than an RPC error.
func (g *GeneratorAgent) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	skill := skillID(req.Message)
	run, ok := g.skills[skill]
	if !ok {
		return nil, fmt.Errorf("%w: %q", a2a.ErrUnsupportedSkill, skill)
	}

	task := a2a.Task{
		ID:        a2a.NewTaskID(),
		ContextID: req.Message.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateWorking, Timestamp: time.Now()},
	}
	if err := g.store.Create(task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	g.track(task.ID, cancel)
	defer g.untrack(task.ID)

	log := g.logger.With("task_id", task.ID, "skill", skill)
	start := time.Now()
	parts, err := run(ctx, req.Message)

	update := func(t *a2a.Task) {
		if t.Status.State.IsTerminal() {
			return
		}
		switch {
		case err != nil:
			t.Status = a2a.TaskStatus{
				State:     a2a.TaskStateFailed,
				Timestamp: time.Now(),
				Message: &a2a.Message{
					MessageID: a2a.NewTaskID(),
					Role:      a2a.RoleAgent,
					Parts:     []a2a.Part{a2a.TextPart(err.Error())},
				},
			}
		default:
			t.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now()}
			t.Artifacts = []a2a.Artifact{{ArtifactID: a2a.NewTaskID(), Name: skill, Parts: parts}}
		}
	}
	if uerr := g.store.Update(task.ID, update); uerr != nil {
		return nil, uerr
	}

	out, gerr := g.store.Get(task.ID)
	if gerr != nil {
		return nil, gerr
	}
	log.Info("task finished", "state", string(out.Status.State), "duration", time.Since(start))
	return out, nil
}

// HandleGetTask returns a stored task.
func (g *GeneratorAgent) HandleGetTask(_ context.Context, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return g.store.Get(req.ID)
}

// HandleCancelTask cancels a running task. Terminal tasks are returned
// unchanged.
func (g *GeneratorAgent) HandleCancelTask(_ context.Context, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	err := g.store.Update(req.ID, func(t *a2a.Task) {
		if !t.Status.State.IsTerminal() {
			t.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Timestamp: time.Now()}
		}
	})
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	if cancel, ok := g.running[req.ID]; ok {
		cancel()
	}
	g.mu.Unlock()
	return g.store.Get(req.ID)
}

func (g *GeneratorAgent) track(id string, cancel context.CancelFunc) {
	g.mu.Lock()
	g.running[id] = cancel
	g.mu.Unlock()
}

func (g *GeneratorAgent) untrack(id string) {
	g.mu.Lock()
	if cancel, ok := g.running[id]; ok {
		cancel()
		delete(g.running, id)
	}
	g.mu.Unlock()
}

// skillID is the first text part of msg.
func skillID(msg a2a.Message) string {
	for _, p := range msg.Parts {
		if p.Text != "" {
			return p.Text
		}
	}
	return ""
}

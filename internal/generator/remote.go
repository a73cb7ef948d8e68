package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dusk-indust/uiforge/internal/a2a"
	"github.com/dusk-indust/uiforge/internal/artifact"
	"github.com/dusk-indust/uiforge/internal/orchestrator"
)

// acceptedOutputModes are the part types DecodeResponse understands.
var acceptedOutputModes = []string{"application/json", "text/plain", "text/markdown", "text/html"}

// Remote serves skills from A2A agents, one endpoint per top-level stage.
type Remote struct {
	client    a2a.Client
	endpoints map[orchestrator.StageName]string
	logger    *slog.Logger
	readFile  func(string) ([]byte, error)
	poll      time.Duration
}

// NewRemote creates a Remote source. A nil logger discards output.
func NewRemote(client a2a.Client, endpoints map[orchestrator.StageName]string, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Remote{
		client:    client,
		endpoints: endpoints,
		logger:    logger,
		readFile:  os.ReadFile,
		poll:      500 * time.Millisecond,
	}
}

// Generator returns a Stage sending skill to the endpoint of its stage, or
// nil when no endpoint is configured.
func (r *Remote) Generator(skill string, kind artifact.Kind) orchestrator.Stage {
	endpoint := r.endpoints[SkillStage(skill)]
	if endpoint == "" {
		return nil
	}
	return &remoteStage{Remote: r, skill: skill, kind: kind, endpoint: endpoint}
}

type remoteStage struct {
	*Remote
	skill    string
	kind     artifact.Kind
	endpoint string
}

// Generate sends one blocking message/send. Transport errors and tasks the
// agent failed are transient; output that cannot be decoded is a quality
// rejection.
func (s *remoteStage) Generate(ctx context.Context, in orchestrator.Inputs, cfg orchestrator.RunConfig) (artifact.Artifact, error) {
	var image *Image
	if SkillStage(s.skill) == orchestrator.StageWireframe && in.Image.Path != "" {
		data, err := s.readFile(in.Image.Path)
		if err != nil {
			return nil, &orchestrator.TransientFailure{Reason: "read design image", Err: err}
		}
		image = &Image{Name: in.Image.Path, Data: data}
	}

	msg, err := EncodeRequest(s.skill, in, cfg, image)
	if err != nil {
		return nil, err
	}
	task, err := s.client.SendMessage(ctx, s.endpoint, a2a.SendMessageRequest{
		Message: msg,
		Configuration: &a2a.SendMessageConfig{
			AcceptedOutputModes: acceptedOutputModes,
			Blocking:            true,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &orchestrator.TransientFailure{Reason: "generator " + s.skill + " unreachable", Err: err}
	}

	task, err = s.await(ctx, task)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("generator replied", "skill", s.skill, "task_id", task.ID, "state", string(task.Status.State))

	switch task.Status.State {
	case a2a.TaskStateCompleted:
	case a2a.TaskStateFailed, a2a.TaskStateRejected, a2a.TaskStateCanceled:
		reason := task.StatusText()
		if reason == "" {
			reason = "no reason given"
		}
		return nil, &orchestrator.TransientFailure{
			Reason: fmt.Sprintf("generator %s task %s: %s", s.skill, task.Status.State, reason),
		}
	default:
		return nil, &orchestrator.TransientFailure{
			Reason: fmt.Sprintf("generator %s left task in state %s", s.skill, task.Status.State),
		}
	}

	out, err := DecodeResponse(s.kind, task.Parts(), cfg)
	if err != nil {
		return nil, orchestrator.Rejectf("%s output could not be decoded: %v", s.kind, err)
	}
	return out, nil
}

// await polls tasks/get for agents that answer a blocking send with a task
// still in progress. The task is canceled on the agent when ctx ends.
func (s *remoteStage) await(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	if task.Status.State.IsTerminal() || task.Status.State == a2a.TaskStateInputRequired {
		return task, nil
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if _, err := s.client.CancelTask(cctx, s.endpoint, a2a.CancelTaskRequest{ID: task.ID}); err != nil {
				s.logger.Warn("cancel remote task failed", "skill", s.skill, "task_id", task.ID, "error", err)
			}
			cancel()
			return nil, ctx.Err()
		case <-ticker.C:
		}
		next, err := s.client.GetTask(ctx, s.endpoint, a2a.GetTaskRequest{ID: task.ID})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			return nil, &orchestrator.TransientFailure{Reason: "poll generator " + s.skill, Err: err}
		}
		if next.Status.State.IsTerminal() || next.Status.State == a2a.TaskStateInputRequired {
			return next, nil
		}
	}
}

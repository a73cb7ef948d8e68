package a2a

import "context"

// Client sends work to generator agents.
type Client interface {
	// SendMessage delivers a message. With blocking configuration the
	// returned task is terminal.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches the agent card from the well-known URI.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}

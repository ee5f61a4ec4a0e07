package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueInvitationDispatch enqueues the invitation dispatch job for a
// membership.
func (c *Client) EnqueueInvitationDispatch(ctx context.Context, membershipID shared.ID) error {
	task, err := NewInvitationTask(InvitationPayload{MembershipID: membershipID.String()})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("invitation dispatch queued",
		"task_id", info.ID,
		"membership_id", membershipID.String(),
		"queue", info.Queue,
	)
	return nil
}

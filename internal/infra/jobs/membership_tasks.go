// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stagepass/api/internal/app"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/logger"
)

// TypeMembershipInvitation dispatches the post-create invitation flow
// for one membership.
const TypeMembershipInvitation = "membership:invitation"

// InvitationPayload contains data for the invitation dispatch task.
type InvitationPayload struct {
	MembershipID string `json:"membership_id"`
}

// NewInvitationTask creates a new invitation dispatch task. Retries
// are disabled: the dispatcher already swallows expected delivery
// refusals, and a failed send is replayed by an operator rather than
// hammering the SMTP relay.
func NewInvitationTask(payload InvitationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invitation payload: %w", err)
	}
	return asynq.NewTask(
		TypeMembershipInvitation,
		data,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
		asynq.Queue("email"),
	), nil
}

// MembershipTaskHandler handles membership task processing.
type MembershipTaskHandler struct {
	dispatcher *app.InvitationDispatcher
	logger     *logger.Logger
}

// NewMembershipTaskHandler creates a new membership task handler.
func NewMembershipTaskHandler(dispatcher *app.InvitationDispatcher, log *logger.Logger) *MembershipTaskHandler {
	return &MembershipTaskHandler{
		dispatcher: dispatcher,
		logger:     log.With("handler", "membership_tasks"),
	}
}

// HandleInvitation processes invitation dispatch tasks.
func (h *MembershipTaskHandler) HandleInvitation(ctx context.Context, t *asynq.Task) error {
	var payload InvitationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	membershipID, err := shared.IDFromString(payload.MembershipID)
	if err != nil {
		return fmt.Errorf("invalid membership id in payload: %w", err)
	}

	h.logger.Info("processing invitation dispatch",
		"membership_id", payload.MembershipID,
	)

	if err := h.dispatcher.Dispatch(ctx, membershipID); err != nil {
		h.logger.Error("invitation dispatch failed",
			"membership_id", payload.MembershipID,
			"error", err,
		)
		return err
	}
	return nil
}

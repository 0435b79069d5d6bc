package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/policy"
)

// validate runs the admission policy and checks the session id.
func (s *Service) validate(ctx context.Context, req *domain.ChatRequest) error {
	input := policy.Input{
		Message:          req.Message,
		RequireSelection: req.RequireSelection,
		Limits: policy.Limits{
			MaxMessageChars:      s.config.MaxMessageChars,
			MaxSelectedTextChars: s.config.MaxSelectedTextChars,
		},
	}
	if req.SelectedText != nil {
		input.SelectedText = *req.SelectedText
	}

	decision, reason, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		return &domain.Error{Kind: domain.KindInternal, Message: "policy evaluation failed", Err: err}
	}
	if decision != policy.DecisionAllow {
		if reason == "" {
			reason = "Request rejected"
		}
		return domain.NewValidationError(reason)
	}

	if req.SessionID == "" {
		return domain.NewValidationError("session_id is required")
	}
	if _, err := uuid.Parse(req.SessionID); err != nil {
		return domain.NewValidationError(fmt.Sprintf("Invalid session_id: %s", req.SessionID))
	}
	return nil
}

// verifySession returns ErrSessionNotFound unless the session exists.
func (s *Service) verifySession(ctx context.Context, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.NewPersistenceError("get session", err)
	}
	if session == nil {
		return domain.ErrSessionNotFound
	}
	return nil
}

package request

import (
	"context"
	"fmt"
	"time"

	"github.com/knakagawa/lessonpay/internal/idgen"
	"github.com/knakagawa/lessonpay/internal/logging"
	"github.com/knakagawa/lessonpay/internal/validation"
)

// Service owns request creation and acceptance. Escrow transitions live
// in the escrow coordinator; this service only handles the pre-payment
// half of the lifecycle.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateParams are the caller-supplied fields for a new draft request.
type CreateParams struct {
	Title        string
	Description  string
	BudgetAmount int64
	RequesterID  string
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Request, error) {
	p.Title = validation.SanitizeString(p.Title, validation.MaxTitleLength)
	p.Description = validation.SanitizeString(p.Description, validation.MaxDescriptionLength)

	if err := validation.Validate(
		validation.Required("title", p.Title),
		validation.MaxLength("title", p.Title, validation.MaxTitleLength),
		validation.MaxLength("description", p.Description, validation.MaxDescriptionLength),
		validation.Required("requesterId", p.RequesterID),
		validation.ValidID("requesterId", p.RequesterID),
		validation.PositiveAmount("budgetAmount", p.BudgetAmount),
	); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req := &Request{
		ID:           idgen.WithPrefix("req"),
		Title:        p.Title,
		Description:  p.Description,
		BudgetAmount: p.BudgetAmount,
		RequesterID:  p.RequesterID,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	logging.L(ctx).Info("request created",
		"request_id", req.ID,
		"requester_id", req.RequesterID,
		"budget_amount", req.BudgetAmount,
	)
	return req, nil
}

// Accept moves a draft request to accepted with the given provider. The
// requester cannot accept their own request.
func (s *Service) Accept(ctx context.Context, requestID, providerID string) (*Request, error) {
	if err := validation.Validate(
		validation.Required("requestId", requestID),
		validation.ValidID("requestId", requestID),
		validation.Required("providerId", providerID),
		validation.ValidID("providerId", providerID),
	); err != nil {
		return nil, err
	}

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID == providerID {
		return nil, ErrSelfAccept
	}

	err = s.store.ConditionalUpdate(ctx, requestID, StatusDraft, Patch{
		Status:     StatusAccepted,
		ProviderID: &providerID,
	})
	if err != nil {
		return nil, err
	}

	logging.L(ctx).Info("request accepted",
		"request_id", requestID,
		"provider_id", providerID,
	)
	return s.store.Get(ctx, requestID)
}

func (s *Service) Get(ctx context.Context, requestID string) (*Request, error) {
	return s.store.Get(ctx, requestID)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Request, error) {
	if err := validation.Validate(
		validation.Required("userId", userID),
		validation.ValidID("userId", userID),
	); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, userID, limit)
}

package profile

import (
	"context"
	"errors"
	"time"

	"github.com/knakagawa/lessonpay/internal/escrow"
	"github.com/knakagawa/lessonpay/internal/validation"
)

// Service manages profiles and doubles as the escrow coordinator's
// payout directory.
type Service struct {
	store Store
}

var _ escrow.PayoutDirectory = (*Service)(nil)

func NewService(store Store) *Service {
	return &Service{store: store}
}

// UpsertParams are the caller-supplied profile fields.
type UpsertParams struct {
	UserID        string
	DisplayName   string
	Bio           string
	PayoutAccount string
}

func (s *Service) Upsert(ctx context.Context, p UpsertParams) (*Profile, error) {
	p.DisplayName = validation.SanitizeString(p.DisplayName, validation.MaxTitleLength)
	p.Bio = validation.SanitizeString(p.Bio, validation.MaxDescriptionLength)

	if err := validation.Validate(
		validation.Required("userId", p.UserID),
		validation.ValidID("userId", p.UserID),
		validation.Required("displayName", p.DisplayName),
		validation.ValidPayoutAccount("payoutAccount", p.PayoutAccount),
	); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prof := &Profile{
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		Bio:           p.Bio,
		PayoutAccount: p.PayoutAccount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing, err := s.store.Get(ctx, p.UserID); err == nil {
		prof.CreatedAt = existing.CreatedAt
	}
	if err := s.store.Upsert(ctx, prof); err != nil {
		return nil, err
	}
	return prof, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.store.Get(ctx, userID)
}

// PayoutAccount implements escrow.PayoutDirectory. A missing profile
// and a profile without a payout account look the same to escrow.
func (s *Service) PayoutAccount(ctx context.Context, userID string) (string, error) {
	prof, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return "", escrow.ErrNoPayoutAccount
	}
	if err != nil {
		return "", err
	}
	if prof.PayoutAccount == "" {
		return "", escrow.ErrNoPayoutAccount
	}
	return prof.PayoutAccount, nil
}

// Package profile stores user profiles, most importantly the payout
// account a provider receives transfers on.
package profile

import (
	"context"
	"errors"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is a marketplace user. PayoutAccount is the connected
// account funds are transferred to; empty until onboarding completes.
type Profile struct {
	UserID        string    `json:"userId"`
	DisplayName   string    `json:"displayName"`
	Bio           string    `json:"bio,omitempty"`
	PayoutAccount string    `json:"payoutAccount,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Store interface {
	Upsert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
}

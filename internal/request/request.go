// Package request persists service requests and their escrow lifecycle.
//
// A request moves along a single path:
//
//	draft → accepted → escrow_pending → escrowed → completed
//
// with escrow_pending and escrowed each also able to reach canceled.
// Every mutation is a compare-and-swap on the current status, so two
// racing transitions resolve to exactly one winner.
package request

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrStatusConflict  = errors.New("request status does not match expected status")
	ErrInvalidBudget   = errors.New("budget amount must be positive")
	ErrSelfAccept      = errors.New("requester cannot accept their own request")
)

// Status represents where a request sits in the escrow lifecycle.
type Status string

const (
	StatusDraft         Status = "draft"          // Created, no provider yet
	StatusAccepted      Status = "accepted"       // Provider committed to the work
	StatusEscrowPending Status = "escrow_pending" // Checkout session created, awaiting authorization
	StatusEscrowed      Status = "escrowed"       // Funds authorized and held
	StatusCompleted     Status = "completed"      // Funds captured and transferred
	StatusCanceled      Status = "canceled"       // Hold released, no transfer
)

// Terminal returns true once a request can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusAccepted, StatusEscrowPending, StatusEscrowed, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Request is a persisted service request.
//
// ProviderID is empty exactly while status is draft. PaymentIntentID is
// empty until the gateway confirms authorization (status escrowed).
type Request struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	BudgetAmount     int64     `json:"budgetAmount"` // minor currency units
	RequesterID      string    `json:"requesterId"`
	ProviderID       string    `json:"providerId,omitempty"`
	Status           Status    `json:"status"`
	GatewaySessionID string    `json:"gatewaySessionId,omitempty"`
	PaymentIntentID  string    `json:"paymentIntentId,omitempty"` // display only, never an authorization signal
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Patch describes the fields a conditional update may set alongside the
// new status. Nil pointers leave the stored value untouched.
type Patch struct {
	Status           Status
	ProviderID       *string
	GatewaySessionID *string
	PaymentIntentID  *string
}

// Store persists requests.
//
// ConditionalUpdate applies the patch only if the stored status equals
// expected; otherwise it returns ErrStatusConflict and changes nothing.
// Zero rows affected is a precondition failure, never retried here.
type Store interface {
	Create(ctx context.Context, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	ConditionalUpdate(ctx context.Context, id string, expected Status, patch Patch) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Request, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Request, error)
}

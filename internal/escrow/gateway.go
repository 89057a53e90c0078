package escrow

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized    = errors.New("actor is not permitted to perform this transition")
	ErrNoPayoutAccount  = errors.New("provider has no payout account on file")
	ErrAmountMismatch   = errors.New("authorized amount does not match request budget")
	ErrSessionNotLinked = errors.New("session does not belong to this request")
)

// SessionState is the gateway-side state of a held-payment session.
type SessionState string

const (
	SessionOpen     SessionState = "open"
	SessionComplete SessionState = "complete"
	SessionExpired  SessionState = "expired"
)

// HeldPaymentParams describes a checkout session that authorizes the
// full budget without capturing it. FeeAmount is carved out of Amount
// at capture time and routed to the platform.
type HeldPaymentParams struct {
	RequestID      string
	Title          string
	Amount         int64
	Currency       string
	FeeAmount      int64
	PayoutAccount  string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// HeldPaymentSession is what the gateway knows about a session.
// PaymentIntentID is empty until the payer completes checkout.
type HeldPaymentSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	AmountTotal     int64
	State           SessionState
}

// PaymentGateway is the escrow coordinator's view of the payment
// provider. Capture and cancel act on the payment intent behind a
// completed session; Expire tears down a session nobody paid.
//
// CancelHold must succeed when the intent is already canceled (a retry
// after a partial failure) but must fail when it was captured.
type PaymentGateway interface {
	CreateHeldPayment(ctx context.Context, p HeldPaymentParams) (*HeldPaymentSession, error)
	GetSession(ctx context.Context, sessionID string) (*HeldPaymentSession, error)
	CaptureHold(ctx context.Context, paymentIntentID, idempotencyKey string) error
	CancelHold(ctx context.Context, paymentIntentID, idempotencyKey string) error
	ExpireSession(ctx context.Context, sessionID string) error
}

// GatewayError wraps a provider-side failure with its provider error
// code so callers can branch on it without importing the provider SDK.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("payment gateway: %s", e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

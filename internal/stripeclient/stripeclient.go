// Package stripeclient implements the escrow payment gateway on
// Stripe Checkout with manual-capture payment intents and Connect
// destination charges.
package stripeclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/knakagawa/lessonpay/internal/escrow"
)

// Client adapts the Stripe API to escrow.PaymentGateway.
type Client struct {
	api *client.API
}

var _ escrow.PaymentGateway = (*Client)(nil)

func New(secretKey string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}
}

// CreateHeldPayment opens a Checkout session whose payment intent
// authorizes the full amount without capturing it. The platform fee
// and the transfer destination are fixed at session creation.
func (c *Client) CreateHeldPayment(ctx context.Context, p escrow.HeldPaymentParams) (*escrow.HeldPaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Title),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod:        stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
			ApplicationFeeAmount: stripe.Int64(p.FeeAmount),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(p.PayoutAccount),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("request_id", p.RequestID)
	params.SetIdempotencyKey(p.IdempotencyKey)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return toHeldSession(sess), nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*escrow.HeldPaymentSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, wrapStripeErr(err)
	}
	return toHeldSession(sess), nil
}

func (c *Client) CaptureHold(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	if _, err := c.api.PaymentIntents.Capture(paymentIntentID, params); err != nil {
		return wrapStripeErr(err)
	}
	return nil
}

// CancelHold cancels the authorization. A retry against an already
// canceled intent is a success; any other unexpected-state failure
// (such as a captured intent) is surfaced.
func (c *Client) CancelHold(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	_, err := c.api.PaymentIntents.Cancel(paymentIntentID, params)
	if err == nil {
		return nil
	}

	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
		getParams := &stripe.PaymentIntentParams{}
		getParams.Context = ctx
		intent, getErr := c.api.PaymentIntents.Get(paymentIntentID, getParams)
		if getErr == nil && intent.Status == stripe.PaymentIntentStatusCanceled {
			return nil
		}
	}
	return wrapStripeErr(err)
}

func (c *Client) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := c.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return wrapStripeErr(err)
	}
	return nil
}

func toHeldSession(sess *stripe.CheckoutSession) *escrow.HeldPaymentSession {
	out := &escrow.HeldPaymentSession{
		ID:          sess.ID,
		URL:         sess.URL,
		AmountTotal: sess.AmountTotal,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	switch sess.Status {
	case stripe.CheckoutSessionStatusComplete:
		out.State = escrow.SessionComplete
	case stripe.CheckoutSessionStatusExpired:
		out.State = escrow.SessionExpired
	default:
		out.State = escrow.SessionOpen
	}
	return out
}

func wrapStripeErr(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		return &escrow.GatewayError{
			Code:    string(sErr.Code),
			Message: sErr.Msg,
			Err:     err,
		}
	}
	return fmt.Errorf("stripe: %w", err)
}

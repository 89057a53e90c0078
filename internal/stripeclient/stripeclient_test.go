package stripeclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/knakagawa/lessonpay/internal/escrow"
)

func TestToHeldSession(t *testing.T) {
	sess := toHeldSession(&stripe.CheckoutSession{
		ID:            "cs_test_000000000000000000000001",
		URL:           "https://checkout.stripe.com/c/pay/cs_test",
		AmountTotal:   10000,
		Status:        stripe.CheckoutSessionStatusComplete,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_000000000000000000000001"},
	})

	assert.Equal(t, escrow.SessionComplete, sess.State)
	assert.Equal(t, "pi_000000000000000000000001", sess.PaymentIntentID)
	assert.Equal(t, int64(10000), sess.AmountTotal)
}

func TestToHeldSessionStates(t *testing.T) {
	tests := []struct {
		status stripe.CheckoutSessionStatus
		want   escrow.SessionState
	}{
		{stripe.CheckoutSessionStatusOpen, escrow.SessionOpen},
		{stripe.CheckoutSessionStatusComplete, escrow.SessionComplete},
		{stripe.CheckoutSessionStatusExpired, escrow.SessionExpired},
		{"", escrow.SessionOpen},
	}
	for _, tt := range tests {
		sess := toHeldSession(&stripe.CheckoutSession{Status: tt.status})
		assert.Equal(t, tt.want, sess.State)
	}
}

func TestWrapStripeErr(t *testing.T) {
	err := wrapStripeErr(&stripe.Error{
		Code: stripe.ErrorCodePaymentIntentUnexpectedState,
		Msg:  "The PaymentIntent could not be captured",
	})

	var gwErr *escrow.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "payment_intent_unexpected_state", gwErr.Code)
}

func TestWrapStripeErrNonStripe(t *testing.T) {
	err := wrapStripeErr(errors.New("connection refused"))

	var gwErr *escrow.GatewayError
	assert.False(t, errors.As(err, &gwErr))
	assert.ErrorContains(t, err, "stripe")
}

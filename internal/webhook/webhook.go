// Package webhook ingests payment gateway event notifications.
//
// Events are authenticated by signature before anything else. An event
// that verifies but is irrelevant, stale, or a duplicate is
// acknowledged and dropped; only signature failures are rejected, so
// the gateway never retries garbage forever.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"

	"github.com/knakagawa/lessonpay/internal/escrow"
	"github.com/knakagawa/lessonpay/internal/logging"
	"github.com/knakagawa/lessonpay/internal/metrics"
)

// Confirmer is the slice of the escrow coordinator the ingester needs.
type Confirmer interface {
	Confirm(ctx context.Context, p escrow.ConfirmParams) error
}

// maxBodyBytes caps webhook request bodies, per Stripe's guidance.
const maxBodyBytes = int64(65536)

// Ingester verifies and dispatches gateway webhooks.
type Ingester struct {
	secret    string
	confirmer Confirmer
}

func NewIngester(secret string, confirmer Confirmer) *Ingester {
	return &Ingester{secret: secret, confirmer: confirmer}
}

func (i *Ingester) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook", i.handle)
}

func (i *Ingester) handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "failed to read body"})
		return
	}

	// An endpoint pinned to a different Stripe API version must not
	// reject genuine events, so only the signature is enforced here.
	event, err := stripewebhook.ConstructEventWithOptions(body, c.GetHeader("Stripe-Signature"), i.secret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.WebhookSignatureFailuresTotal.Inc()
		logging.L(c.Request.Context()).Warn("webhook signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature", "message": "signature verification failed"})
		return
	}

	if err := i.dispatch(c.Request.Context(), event); err != nil {
		// Transient failure: let the gateway redeliver.
		logging.L(c.Request.Context()).Error("webhook processing failed",
			"event_id", event.ID, "event_type", event.Type, "error", err)
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// dispatch returns an error only for transient failures worth a
// gateway retry. Events we will never be able to apply are logged and
// swallowed.
func (i *Ingester) dispatch(ctx context.Context, event stripe.Event) error {
	log := logging.L(ctx).With("event_id", event.ID, "event_type", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Error("malformed checkout session payload", "error", err)
			metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "malformed").Inc()
			return nil
		}

		requestID := sess.Metadata["request_id"]
		if requestID == "" {
			log.Warn("completed session without request_id metadata, dropping",
				"session_id", sess.ID)
			metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "dropped").Inc()
			return nil
		}

		var paymentIntentID string
		if sess.PaymentIntent != nil {
			paymentIntentID = sess.PaymentIntent.ID
		}

		err := i.confirmer.Confirm(ctx, escrow.ConfirmParams{
			RequestID:       requestID,
			SessionID:       sess.ID,
			PaymentIntentID: paymentIntentID,
			AmountTotal:     sess.AmountTotal,
		})
		switch {
		case errors.Is(err, escrow.ErrAmountMismatch), errors.Is(err, escrow.ErrSessionNotLinked):
			// Redelivery cannot fix these. Already logged upstream.
			metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "rejected").Inc()
			return nil
		case err != nil:
			return fmt.Errorf("confirm escrow: %w", err)
		}
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "processed").Inc()
		return nil

	default:
		log.Debug("ignoring event type")
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "ignored").Inc()
		return nil
	}
}

package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/knakagawa/lessonpay/internal/logging"
	"github.com/knakagawa/lessonpay/internal/metrics"
	"github.com/knakagawa/lessonpay/internal/request"
	"github.com/knakagawa/lessonpay/internal/traces"
	"github.com/knakagawa/lessonpay/internal/validation"
)

// PayoutDirectory resolves a provider's payout account with the
// gateway. Returns ErrNoPayoutAccount when none is on file.
type PayoutDirectory interface {
	PayoutAccount(ctx context.Context, userID string) (string, error)
}

// EventPublisher receives status change notifications. Implementations
// must not block.
type EventPublisher interface {
	PublishStatus(requestID string, status request.Status)
}

type noopPublisher struct{}

func (noopPublisher) PublishStatus(string, request.Status) {}

// Coordinator drives a request through the payment half of its
// lifecycle. Every transition re-reads current state, checks the
// precondition before touching the gateway, and commits with a
// compare-and-swap so racing calls resolve to one winner.
type Coordinator struct {
	store      request.Store
	gateway    PaymentGateway
	payouts    PayoutDirectory
	events     EventPublisher
	feePercent int
	currency   string
	appURL     string
}

func NewCoordinator(store request.Store, gateway PaymentGateway, payouts PayoutDirectory, feePercent int, currency, appURL string) *Coordinator {
	return &Coordinator{
		store:      store,
		gateway:    gateway,
		payouts:    payouts,
		events:     noopPublisher{},
		feePercent: feePercent,
		currency:   currency,
		appURL:     appURL,
	}
}

// WithEvents sets the publisher that receives status changes.
func (c *Coordinator) WithEvents(events EventPublisher) *Coordinator {
	c.events = events
	return c
}

// InitiateResult is returned to the requester so they can be redirected
// into checkout.
type InitiateResult struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Initiate opens a held-payment session for an accepted request and
// moves it to escrow_pending. Only the requester may initiate.
func (c *Coordinator) Initiate(ctx context.Context, requestID, actorID string) (*InitiateResult, error) {
	ctx, span := traces.Start(ctx, "escrow.initiate")
	defer span.End()

	if err := validation.Validate(
		validation.Required("requestId", requestID),
		validation.ValidID("requestId", requestID),
		validation.Required("actorId", actorID),
		validation.ValidID("actorId", actorID),
	); err != nil {
		return nil, err
	}

	req, err := c.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusAccepted {
		metrics.EscrowTransitionsTotal.WithLabelValues("initiate", "precondition_failed").Inc()
		return nil, request.ErrStatusConflict
	}
	if req.RequesterID != actorID {
		return nil, ErrNotAuthorized
	}

	payoutAccount, err := c.payouts.PayoutAccount(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	sess, err := c.gateway.CreateHeldPayment(ctx, HeldPaymentParams{
		RequestID:      req.ID,
		Title:          req.Title,
		Amount:         req.BudgetAmount,
		Currency:       c.currency,
		FeeAmount:      ComputeFee(req.BudgetAmount, c.feePercent),
		PayoutAccount:  payoutAccount,
		SuccessURL:     fmt.Sprintf("%s/requests/%s?paid=1", c.appURL, req.ID),
		CancelURL:      fmt.Sprintf("%s/requests/%s?canceled=1", c.appURL, req.ID),
		IdempotencyKey: idempotencyKey(req.ID, "initiate"),
	})
	if err != nil {
		metrics.EscrowTransitionsTotal.WithLabelValues("initiate", "gateway_error").Inc()
		return nil, fmt.Errorf("create held payment: %w", err)
	}

	err = c.store.ConditionalUpdate(ctx, req.ID, request.StatusAccepted, request.Patch{
		Status:           request.StatusEscrowPending,
		GatewaySessionID: &sess.ID,
	})
	if err != nil {
		// The session exists but no row points at it. Expire it so the
		// payer can never complete a checkout we will not honor.
		logging.L(ctx).Error("created session for request that moved underneath us",
			"request_id", req.ID,
			"session_id", sess.ID,
			"error", err,
		)
		metrics.OrphanedSessionsTotal.Inc()
		if expireErr := c.gateway.ExpireSession(ctx, sess.ID); expireErr != nil {
			logging.L(ctx).Error("failed to expire orphaned session",
				"session_id", sess.ID, "error", expireErr)
		}
		return nil, err
	}

	metrics.EscrowTransitionsTotal.WithLabelValues("initiate", "success").Inc()
	c.events.PublishStatus(req.ID, request.StatusEscrowPending)
	logging.L(ctx).Info("escrow initiated",
		"request_id", req.ID,
		"session_id", sess.ID,
		"amount", req.BudgetAmount,
		"fee", ComputeFee(req.BudgetAmount, c.feePercent),
	)
	return &InitiateResult{SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// ConfirmParams carry what the gateway told us about a completed
// checkout. AmountTotal of zero skips the amount cross-check.
type ConfirmParams struct {
	RequestID       string
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
}

// Confirm marks a request escrowed once the gateway reports its session
// complete. It is idempotent: a duplicate confirmation for the same
// payment intent is a silent no-op, and a confirmation that no longer
// applies is logged and dropped rather than surfaced, because the
// caller (a webhook) cannot do anything useful with the failure.
func (c *Coordinator) Confirm(ctx context.Context, p ConfirmParams) error {
	ctx, span := traces.Start(ctx, "escrow.confirm")
	defer span.End()

	log := logging.L(ctx).With("request_id", p.RequestID, "session_id", p.SessionID)

	req, err := c.store.Get(ctx, p.RequestID)
	if errors.Is(err, request.ErrRequestNotFound) {
		log.Warn("confirmation for unknown request, dropping")
		metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "dropped").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	if p.SessionID != "" && req.GatewaySessionID != "" && p.SessionID != req.GatewaySessionID {
		log.Warn("confirmation session does not match stored session, dropping",
			"stored_session_id", req.GatewaySessionID)
		metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "dropped").Inc()
		return ErrSessionNotLinked
	}

	switch req.Status {
	case request.StatusEscrowPending:
		// Fall through to the transition below.
	case request.StatusEscrowed:
		if req.PaymentIntentID == p.PaymentIntentID {
			return nil // duplicate delivery
		}
		log.Warn("confirmation with different payment intent for escrowed request, dropping",
			"stored_intent", req.PaymentIntentID, "intent", p.PaymentIntentID)
		metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "dropped").Inc()
		return nil
	default:
		log.Warn("confirmation for request in unexpected status, dropping",
			"status", req.Status)
		metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "dropped").Inc()
		return nil
	}

	if p.AmountTotal > 0 && p.AmountTotal != req.BudgetAmount {
		log.Error("authorized amount does not match budget, refusing to escrow",
			"amount_total", p.AmountTotal, "budget_amount", req.BudgetAmount)
		metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "amount_mismatch").Inc()
		return ErrAmountMismatch
	}

	err = c.store.ConditionalUpdate(ctx, req.ID, request.StatusEscrowPending, request.Patch{
		Status:          request.StatusEscrowed,
		PaymentIntentID: &p.PaymentIntentID,
	})
	if errors.Is(err, request.ErrStatusConflict) {
		// Raced with another delivery of the same event.
		cur, getErr := c.store.Get(ctx, req.ID)
		if getErr == nil && cur.Status == request.StatusEscrowed && cur.PaymentIntentID == p.PaymentIntentID {
			return nil
		}
		log.Warn("confirmation lost race, dropping", "error", err)
		metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "dropped").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	metrics.EscrowTransitionsTotal.WithLabelValues("confirm", "success").Inc()
	c.events.PublishStatus(req.ID, request.StatusEscrowed)
	log.Info("escrow confirmed", "payment_intent_id", p.PaymentIntentID)
	return nil
}

// Capture releases the held funds to the provider and completes the
// request. Only the requester may capture, and only from escrowed.
func (c *Coordinator) Capture(ctx context.Context, requestID, actorID string) (*request.Request, error) {
	ctx, span := traces.Start(ctx, "escrow.capture")
	defer span.End()

	if err := validation.Validate(
		validation.Required("requestId", requestID),
		validation.ValidID("requestId", requestID),
		validation.Required("actorId", actorID),
		validation.ValidID("actorId", actorID),
	); err != nil {
		return nil, err
	}

	req, err := c.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != request.StatusEscrowed {
		metrics.EscrowTransitionsTotal.WithLabelValues("capture", "precondition_failed").Inc()
		return nil, request.ErrStatusConflict
	}
	if req.RequesterID != actorID {
		return nil, ErrNotAuthorized
	}
	if req.PaymentIntentID == "" {
		return nil, fmt.Errorf("request %s is escrowed without a payment intent", req.ID)
	}

	if err := c.gateway.CaptureHold(ctx, req.PaymentIntentID, idempotencyKey(req.ID, "capture")); err != nil {
		metrics.EscrowTransitionsTotal.WithLabelValues("capture", "gateway_error").Inc()
		return nil, fmt.Errorf("capture hold: %w", err)
	}

	err = c.store.ConditionalUpdate(ctx, req.ID, request.StatusEscrowed, request.Patch{
		Status: request.StatusCompleted,
	})
	if err != nil {
		// Money moved but the row did not follow. This needs a human.
		logging.L(ctx).Error("captured payment but request state moved underneath us",
			"request_id", req.ID,
			"payment_intent_id", req.PaymentIntentID,
			"error", err,
		)
		metrics.EscrowTransitionsTotal.WithLabelValues("capture", "state_divergence").Inc()
		return nil, err
	}

	metrics.EscrowTransitionsTotal.WithLabelValues("capture", "success").Inc()
	c.events.PublishStatus(req.ID, request.StatusCompleted)
	logging.L(ctx).Info("escrow captured",
		"request_id", req.ID,
		"payment_intent_id", req.PaymentIntentID,
	)
	return c.store.Get(ctx, req.ID)
}

// Cancel releases the hold (or abandons the pending session) and ends
// the request. Either party may cancel.
func (c *Coordinator) Cancel(ctx context.Context, requestID, actorID string) (*request.Request, error) {
	ctx, span := traces.Start(ctx, "escrow.cancel")
	defer span.End()

	if err := validation.Validate(
		validation.Required("requestId", requestID),
		validation.ValidID("requestId", requestID),
		validation.Required("actorId", actorID),
		validation.ValidID("actorId", actorID),
	); err != nil {
		return nil, err
	}

	req, err := c.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actorID != req.RequesterID && actorID != req.ProviderID {
		return nil, ErrNotAuthorized
	}

	switch req.Status {
	case request.StatusEscrowPending:
		// Nobody has paid yet. Kill the session so it cannot complete
		// after we mark the request canceled.
		if req.GatewaySessionID != "" {
			if err := c.gateway.ExpireSession(ctx, req.GatewaySessionID); err != nil {
				logging.L(ctx).Warn("failed to expire session during cancel",
					"request_id", req.ID, "session_id", req.GatewaySessionID, "error", err)
			}
		}
	case request.StatusEscrowed:
		if err := c.gateway.CancelHold(ctx, req.PaymentIntentID, idempotencyKey(req.ID, "cancel")); err != nil {
			metrics.EscrowTransitionsTotal.WithLabelValues("cancel", "gateway_error").Inc()
			return nil, fmt.Errorf("cancel hold: %w", err)
		}
	default:
		metrics.EscrowTransitionsTotal.WithLabelValues("cancel", "precondition_failed").Inc()
		return nil, request.ErrStatusConflict
	}

	err = c.store.ConditionalUpdate(ctx, req.ID, req.Status, request.Patch{
		Status: request.StatusCanceled,
	})
	if err != nil {
		return nil, err
	}

	metrics.EscrowTransitionsTotal.WithLabelValues("cancel", "success").Inc()
	c.events.PublishStatus(req.ID, request.StatusCanceled)
	logging.L(ctx).Info("escrow canceled", "request_id", req.ID, "from_status", req.Status)
	return c.store.Get(ctx, req.ID)
}

// Reconcile converges one stuck escrow_pending request against gateway
// truth: a completed session confirms, an expired one cancels, an open
// one is left alone. Returns true when the request changed state.
func (c *Coordinator) Reconcile(ctx context.Context, req *request.Request) (bool, error) {
	if req.Status != request.StatusEscrowPending || req.GatewaySessionID == "" {
		return false, nil
	}

	sess, err := c.gateway.GetSession(ctx, req.GatewaySessionID)
	if err != nil {
		return false, fmt.Errorf("get session %s: %w", req.GatewaySessionID, err)
	}

	switch sess.State {
	case SessionComplete:
		err := c.Confirm(ctx, ConfirmParams{
			RequestID:       req.ID,
			SessionID:       sess.ID,
			PaymentIntentID: sess.PaymentIntentID,
			AmountTotal:     sess.AmountTotal,
		})
		return err == nil, err
	case SessionExpired:
		err := c.store.ConditionalUpdate(ctx, req.ID, request.StatusEscrowPending, request.Patch{
			Status: request.StatusCanceled,
		})
		if errors.Is(err, request.ErrStatusConflict) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		c.events.PublishStatus(req.ID, request.StatusCanceled)
		logging.L(ctx).Info("reconciled expired session to canceled",
			"request_id", req.ID, "session_id", sess.ID)
		return true, nil
	default:
		return false, nil
	}
}

func idempotencyKey(requestID, op string) string {
	return requestID + ":" + op
}

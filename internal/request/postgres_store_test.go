package request_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knakagawa/lessonpay/internal/request"
	"github.com/knakagawa/lessonpay/internal/testutil"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := request.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	req := &request.Request{
		ID:           "req_0000000000000000000000aa",
		Title:        "Weekly calculus tutoring",
		Description:  "Two hours, Tuesday evenings",
		BudgetAmount: 10000,
		RequesterID:  "user_000000000000000000000001",
		Status:       request.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Create(ctx, req))

	got, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Title, got.Title)
	assert.Equal(t, req.BudgetAmount, got.BudgetAmount)
	assert.Equal(t, request.StatusDraft, got.Status)
	assert.Empty(t, got.ProviderID)
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := request.NewPostgresStore(db)
	_, err := store.Get(context.Background(), "req_0000000000000000000000ff")
	assert.ErrorIs(t, err, request.ErrRequestNotFound)
}

func TestPostgresStoreConditionalUpdate(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := request.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	req := &request.Request{
		ID:           "req_0000000000000000000000ab",
		Title:        "Guitar basics",
		BudgetAmount: 6000,
		RequesterID:  "user_000000000000000000000001",
		Status:       request.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Create(ctx, req))

	provider := "user_000000000000000000000002"
	require.NoError(t, store.ConditionalUpdate(ctx, req.ID, request.StatusDraft, request.Patch{
		Status:     request.StatusAccepted,
		ProviderID: &provider,
	}))

	// Same expectation again must conflict, not re-apply.
	err := store.ConditionalUpdate(ctx, req.ID, request.StatusDraft, request.Patch{
		Status: request.StatusAccepted,
	})
	assert.ErrorIs(t, err, request.ErrStatusConflict)

	// Unknown row reports not found, not conflict.
	err = store.ConditionalUpdate(ctx, "req_0000000000000000000000ff", request.StatusDraft, request.Patch{
		Status: request.StatusAccepted,
	})
	assert.ErrorIs(t, err, request.ErrRequestNotFound)

	got, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusAccepted, got.Status)
	assert.Equal(t, provider, got.ProviderID)
}

func TestPostgresStorePatchLeavesUnsetFields(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := request.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	req := &request.Request{
		ID:               "req_0000000000000000000000ac",
		Title:            "Essay review",
		BudgetAmount:     3000,
		RequesterID:      "user_000000000000000000000001",
		ProviderID:       "user_000000000000000000000002",
		Status:           request.StatusEscrowPending,
		GatewaySessionID: "cs_0000000000000000000000aa",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, store.Create(ctx, req))

	intent := "pi_0000000000000000000000aa"
	require.NoError(t, store.ConditionalUpdate(ctx, req.ID, request.StatusEscrowPending, request.Patch{
		Status:          request.StatusEscrowed,
		PaymentIntentID: &intent,
	}))

	got, err := store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_0000000000000000000000aa", got.GatewaySessionID)
	assert.Equal(t, intent, got.PaymentIntentID)
	assert.Equal(t, "user_000000000000000000000002", got.ProviderID)
}

func TestPostgresStoreListByUser(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := request.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, requester := range []string{"user_000000000000000000000001", "user_000000000000000000000001", "user_000000000000000000000003"} {
		require.NoError(t, store.Create(ctx, &request.Request{
			ID:           "req_0000000000000000000000b" + string(rune('0'+i)),
			Title:        "Lesson",
			BudgetAmount: 1000,
			RequesterID:  requester,
			Status:       request.StatusDraft,
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
			UpdatedAt:    now.Add(time.Duration(i) * time.Second),
		}))
	}

	reqs, err := store.ListByUser(ctx, "user_000000000000000000000001", 10)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)
	// Newest first.
	assert.True(t, reqs[0].CreatedAt.After(reqs[1].CreatedAt))
}

func TestPostgresStoreListPendingOlderThan(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := request.NewPostgresStore(db)
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, store.Create(ctx, &request.Request{
		ID:               "req_0000000000000000000000c1",
		Title:            "Stuck",
		BudgetAmount:     1000,
		RequesterID:      "user_000000000000000000000001",
		ProviderID:       "user_000000000000000000000002",
		Status:           request.StatusEscrowPending,
		GatewaySessionID: "cs_0000000000000000000000c1",
		CreatedAt:        old,
		UpdatedAt:        old,
	}))
	require.NoError(t, store.Create(ctx, &request.Request{
		ID:           "req_0000000000000000000000c2",
		Title:        "Fresh",
		BudgetAmount: 1000,
		RequesterID:  "user_000000000000000000000001",
		Status:       request.StatusEscrowPending,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}))

	stuck, err := store.ListPendingOlderThan(ctx, time.Now().UTC().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "req_0000000000000000000000c1", stuck[0].ID)
}

package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knakagawa/lessonpay/internal/profile"
	"github.com/knakagawa/lessonpay/internal/testutil"
)

func TestPostgresStoreUpsert(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := profile.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	p := &profile.Profile{
		UserID:      "user_0000000000000000000000aa",
		DisplayName: "Aiko",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.Upsert(ctx, p))

	// Second upsert overwrites mutable fields.
	p.DisplayName = "Aiko T."
	p.PayoutAccount = "acct_FAKE123"
	require.NoError(t, store.Upsert(ctx, p))

	got, err := store.Get(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Aiko T.", got.DisplayName)
	assert.Equal(t, "acct_FAKE123", got.PayoutAccount)
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := profile.NewPostgresStore(db)
	_, err := store.Get(context.Background(), "user_0000000000000000000000ff")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)
}

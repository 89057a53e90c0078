package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, p *Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, bio, payout_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			payout_account = EXCLUDED.payout_account,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.DisplayName, nullString(p.Bio), nullString(p.PayoutAccount),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Profile, error) {
	var (
		p             Profile
		bio           sql.NullString
		payoutAccount sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, bio, payout_account, created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &bio, &payoutAccount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Bio = bio.String
	p.PayoutAccount = payoutAccount.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

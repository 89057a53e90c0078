package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, req *Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, title, description, budget_amount, requester_id, provider_id,
			status, gateway_session_id, payment_intent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.Title, nullString(req.Description), req.BudgetAmount,
		req.RequesterID, nullString(req.ProviderID), string(req.Status),
		nullString(req.GatewaySessionID), nullString(req.PaymentIntentID),
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, budget_amount, requester_id, provider_id,
			status, gateway_session_id, payment_intent_id, created_at, updated_at
		FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ConditionalUpdate compiles the patch into a single UPDATE guarded by
// the expected status. Zero rows means either the row is gone or the
// status moved underneath us; a follow-up read tells the two apart.
func (s *PostgresStore) ConditionalUpdate(ctx context.Context, id string, expected Status, patch Patch) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET
			status = $1,
			provider_id = COALESCE($2, provider_id),
			gateway_session_id = COALESCE($3, gateway_session_id),
			payment_intent_id = COALESCE($4, payment_intent_id),
			updated_at = $5
		WHERE id = $6 AND status = $7`,
		string(patch.Status),
		nullStringPtr(patch.ProviderID),
		nullStringPtr(patch.GatewaySessionID),
		nullStringPtr(patch.PaymentIntentID),
		time.Now().UTC(), id, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrRequestNotFound) {
			return ErrRequestNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Request, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, budget_amount, requester_id, provider_id,
			status, gateway_session_id, payment_intent_id, created_at, updated_at
		FROM requests
		WHERE requester_id = $1 OR provider_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *PostgresStore) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Request, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, budget_amount, requester_id, provider_id,
			status, gateway_session_id, payment_intent_id, created_at, updated_at
		FROM requests
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC LIMIT $3`, string(StatusEscrowPending), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*Request, error) {
	var (
		req              Request
		status           string
		description      sql.NullString
		providerID       sql.NullString
		gatewaySessionID sql.NullString
		paymentIntentID  sql.NullString
	)
	err := row.Scan(&req.ID, &req.Title, &description, &req.BudgetAmount,
		&req.RequesterID, &providerID, &status,
		&gatewaySessionID, &paymentIntentID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.Status = Status(status)
	req.Description = description.String
	req.ProviderID = providerID.String
	req.GatewaySessionID = gatewaySessionID.String
	req.PaymentIntentID = paymentIntentID.String
	return &req, nil
}

func collectRequests(rows *sql.Rows) ([]*Request, error) {
	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

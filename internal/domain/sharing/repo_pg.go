package sharing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagg/medagg/internal/domain/record"
	"github.com/medagg/medagg/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tokenCols = `id, patient_id, token_value, scope, issued_at, expires_at, revoked, created_at`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	var scope []string
	err := row.Scan(&t.ID, &t.PatientID, &t.Value, &scope, &t.IssuedAt, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan share token: %w", err)
	}
	t.Scope = make([]record.Category, len(scope))
	for i, c := range scope {
		t.Scope[i] = record.Category(c)
	}
	return &t, nil
}

func (r *RepoPG) Create(ctx context.Context, t *Token) error {
	scope := make([]string, len(t.Scope))
	for i, c := range t.Scope {
		scope[i] = string(c)
	}
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO share_tokens (id, patient_id, token_value, scope, issued_at, expires_at, revoked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, NOW())`,
		t.ID, t.PatientID, t.Value, scope, t.IssuedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert share token: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	q := fmt.Sprintf("SELECT %s FROM share_tokens WHERE id = $1", tokenCols)
	return scanToken(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByValue(ctx context.Context, value string) (*Token, error) {
	q := fmt.Sprintf("SELECT %s FROM share_tokens WHERE token_value = $1", tokenCols)
	return scanToken(r.conn(ctx).QueryRow(ctx, q, value))
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Token, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM share_tokens WHERE patient_id = $1 ORDER BY issued_at DESC, id DESC", tokenCols)
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("query share tokens: %w", err)
	}
	defer rows.Close()

	var out []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *RepoPG) MarkRevoked(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE share_tokens SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke share token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *RepoPG) ValueExists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM share_tokens WHERE token_value = $1)`, value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token value: %w", err)
	}
	return exists, nil
}

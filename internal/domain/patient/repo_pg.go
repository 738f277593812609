package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagg/medagg/internal/platform/db"
)

// ErrNotFound is returned when no patient matches the lookup.
var ErrNotFound = errors.New("patient not found")

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

const patientCols = `id, name, date_of_birth, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *RepoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO patients (id, name, date_of_birth, created_at) VALUES ($1, $2, $3, NOW())`,
		p.ID, p.Name, p.DateOfBirth)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByName(ctx context.Context, name string) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patients WHERE LOWER(name) = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, NormalizeName(name)))
}

func (r *RepoPG) UpdateDateOfBirth(ctx context.Context, id uuid.UUID, dob time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET date_of_birth = $2 WHERE id = $1`, id, dob)
	if err != nil {
		return fmt.Errorf("update patient dob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

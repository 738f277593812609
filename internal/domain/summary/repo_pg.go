package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

func (r *RepoPG) Insert(ctx context.Context, s *Summary) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO summaries (id, patient_id, clinician_summary, patient_summary, disclaimer, source, model, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.PatientID, s.ClinicianSummary, s.PatientSummary, s.Disclaimer, s.Source, s.Model, s.GeneratedAt)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (r *RepoPG) Latest(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	var s Summary
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, patient_id, clinician_summary, patient_summary, disclaimer, source, model, generated_at
		 FROM summaries WHERE patient_id = $1
		 ORDER BY generated_at DESC, id DESC LIMIT 1`, patientID).
		Scan(&s.ID, &s.PatientID, &s.ClinicianSummary, &s.PatientSummary, &s.Disclaimer, &s.Source, &s.Model, &s.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSummary
	}
	if err != nil {
		return nil, fmt.Errorf("query latest summary: %w", err)
	}
	return &s, nil
}

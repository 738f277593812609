package audit

import (
	"context"
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

func (r *RepoPG) Append(ctx context.Context, entry *AccessLog) error {
	cats := make([]string, len(entry.CategoriesReleased))
	for i, c := range entry.CategoriesReleased {
		cats[i] = string(c)
	}
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO access_logs (id, token_id, patient_id, accessed_at, source_ip, categories_released)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.TokenID, entry.PatientID, entry.AccessedAt, entry.SourceIP, cats)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*AccessLog, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, token_id, patient_id, accessed_at, source_ip, categories_released
		 FROM access_logs WHERE patient_id = $1
		 ORDER BY accessed_at DESC, id DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("query access logs: %w", err)
	}
	defer rows.Close()

	var out []*AccessLog
	for rows.Next() {
		var l AccessLog
		var cats []string
		if err := rows.Scan(&l.ID, &l.TokenID, &l.PatientID, &l.AccessedAt, &l.SourceIP, &cats); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		l.CategoriesReleased = make([]record.Category, len(cats))
		for i, c := range cats {
			l.CategoriesReleased[i] = record.Category(c)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

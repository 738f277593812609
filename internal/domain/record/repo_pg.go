package record

import (
	"context"
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

type EntryRepoPG struct {
	pool *pgxpool.Pool
}

func NewEntryRepoPG(pool *pgxpool.Pool) *EntryRepoPG {
	return &EntryRepoPG{pool: pool}
}

func (r *EntryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, patient_id, hospital, category, entry_date, raw_date, fields, seq, created_at`

// categoryOrder keeps SQL result ordering aligned with the canonical
// category order rather than alphabetical.
const categoryOrder = `CASE category
	WHEN 'vitals' THEN 0 WHEN 'labs' THEN 1 WHEN 'meds' THEN 2 ELSE 3 END`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.Hospital, &e.Category, &e.Date, &e.RawDate, &e.Fields, &e.Seq, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepoPG) InsertBatch(ctx context.Context, entries []*Entry) error {
	for _, e := range entries {
		_, err := r.conn(ctx).Exec(ctx, fmt.Sprintf(`INSERT INTO records (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`, entryCols),
			e.ID, e.PatientID, e.Hospital, e.Category, e.Date, e.RawDate, e.Fields, e.Seq)
		if err != nil {
			return fmt.Errorf("insert record entry: %w", err)
		}
	}
	return nil
}

func (r *EntryRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, categories []Category) ([]*Entry, error) {
	// An empty non-nil filter matches nothing; falling through to "all"
	// here would turn an empty token scope into a full release.
	if categories != nil && len(categories) == 0 {
		return []*Entry{}, nil
	}
	q := fmt.Sprintf("SELECT %s FROM records WHERE patient_id = $1", entryCols)
	args := []interface{}{patientID}
	if len(categories) > 0 {
		cats := make([]string, len(categories))
		for i, c := range categories {
			cats[i] = string(c)
		}
		q += " AND category = ANY($2)"
		args = append(args, cats)
	}
	q += fmt.Sprintf(" ORDER BY %s, seq, created_at", categoryOrder)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list record entries: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record entry: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *EntryRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx, "DELETE FROM records WHERE patient_id = $1", patientID); err != nil {
		return fmt.Errorf("delete record entries: %w", err)
	}
	return nil
}

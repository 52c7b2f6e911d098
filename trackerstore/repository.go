package trackerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"claimdesk/claim"
)

var (
	ErrNotFound  = errors.New("trackerstore: claim not found")
	ErrBadStatus = errors.New("trackerstore: unknown status")
	ErrNoMobile  = errors.New("trackerstore: mobile_no is required")
)

const columns = `id::text, customer_name, mobile_no, address, products, issue_description, status, submitted_date`

// Repository persists claim records in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores rec. The caller assigns rec.ID.
func (r *Repository) Insert(ctx context.Context, rec claim.Record) (claim.Record, error) {
	const query = `
		INSERT INTO claims (id, customer_name, mobile_no, address, products, issue_description, status, submitted_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + columns

	out, err := scanRecord(r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.CustomerName,
		rec.MobileNo,
		rec.Address,
		rec.Products,
		rec.IssueDescription,
		string(rec.Status),
		rec.SubmittedDate,
	))
	if err != nil {
		return claim.Record{}, fmt.Errorf("trackerstore: insert: %w", err)
	}
	return out, nil
}

// List returns stored claims in the order they were received, optionally
// restricted to one mobile number.
func (r *Repository) List(ctx context.Context, mobile string) ([]claim.Record, error) {
	query := `SELECT ` + columns + ` FROM claims`
	args := []any{}
	if mobile != "" {
		query += " WHERE mobile_no = $1"
		args = append(args, mobile)
	}
	query += " ORDER BY received_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trackerstore: list: %w", err)
	}
	defer rows.Close()

	out := make([]claim.Record, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("trackerstore: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trackerstore: iterate: %w", err)
	}
	return out, nil
}

// UpdateStatus sets the status of claim id.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status claim.Status) (claim.Record, error) {
	const query = `
		UPDATE claims
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + columns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return claim.Record{}, ErrNotFound
		}
		return claim.Record{}, fmt.Errorf("trackerstore: update status: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (claim.Record, error) {
	var (
		rec    claim.Record
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.CustomerName,
		&rec.MobileNo,
		&rec.Address,
		&rec.Products,
		&rec.IssueDescription,
		&status,
		&rec.SubmittedDate,
	)
	rec.Status = claim.Status(status)
	return rec, err
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metascrub/metascrub/pkg/metascrub"
)

// DBTX is the subset of pgx usable with either a connection pool or a
// transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements metascrub.Repository using PostgreSQL. Findings are
// stored as a text array; the scans table is expected to exist (see
// migrations in the deployment, not this library).
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository.
func New(db DBTX) metascrub.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool.
func NewWithPool(pool *pgxpool.Pool) metascrub.Repository {
	return &Repository{db: pool}
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("scan already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return metascrub.ErrScanNotFound
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateScan(ctx context.Context, scan *metascrub.ScanRecord) error {
	query := `
		INSERT INTO scans (
			id, file_name, format, score, findings, status,
			storage_backend, object_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		scan.ID, scan.FileName, scan.Format, scan.Score, scan.Findings,
		string(scan.Status), scan.StorageBackend, scan.ObjectKey, scan.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create scan", err)
	}
	return nil
}

func (r *Repository) GetScan(ctx context.Context, id uuid.UUID) (*metascrub.ScanRecord, error) {
	query := `
		SELECT id, file_name, format, score, findings, status,
		       storage_backend, object_key, created_at
		FROM scans WHERE id = $1`

	scan, err := scanRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get scan", err)
	}
	return scan, nil
}

func (r *Repository) ListScans(ctx context.Context, params metascrub.ListScansParams) ([]*metascrub.ScanRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, file_name, format, score, findings, status,
		       storage_backend, object_key, created_at
		FROM scans`)

	args := []interface{}{}
	if params.Status != nil {
		args = append(args, string(*params.Status))
		fmt.Fprintf(&sb, " WHERE status = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if params.Limit > 0 {
		args = append(args, params.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, r.handlePostgresError("list scans", err)
	}
	defer rows.Close()

	var scans []*metascrub.ScanRecord
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, r.handlePostgresError("list scans", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list scans", err)
	}
	return scans, nil
}

func (r *Repository) DeleteScan(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM scans WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete scan", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", metascrub.ErrScanNotFound, id)
	}
	return nil
}

func scanRow(row pgx.Row) (*metascrub.ScanRecord, error) {
	var scan metascrub.ScanRecord
	var status string
	err := row.Scan(
		&scan.ID, &scan.FileName, &scan.Format, &scan.Score, &scan.Findings,
		&status, &scan.StorageBackend, &scan.ObjectKey, &scan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	scan.Status = metascrub.ScanStatus(status)
	return &scan, nil
}

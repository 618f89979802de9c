package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/watch-market/internal/domain"
)

const reportColumns = `id, listing_id, reporter_id, reason, status, created_at, closed_at`

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository builds repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (listing_id, reporter_id, reason, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		report.ListingID,
		report.ReporterID,
		report.Reason,
		report.Status,
	).Scan(&report.ID, &report.CreatedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	report, err := scanReport(r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return report, nil
}

func (r *reportRepository) Close(ctx context.Context, id string, closedAt time.Time) (*domain.Report, bool, error) {
	query := `
        UPDATE reports SET status=$1, closed_at=$2
        WHERE id=$3 AND status=$4
        RETURNING ` + reportColumns
	report, err := scanReport(r.pool.QueryRow(ctx, query,
		domain.ReportStatusClosed,
		closedAt,
		id,
		domain.ReportStatusOpen,
	))
	if err == nil {
		return report, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	// either missing or already closed
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *reportRepository) List(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error) {
	limit, offset = NormalizePage(limit, offset)
	query := `SELECT ` + reportColumns + ` FROM reports WHERE status=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.ListingID,
		&report.ReporterID,
		&report.Reason,
		&report.Status,
		&report.CreatedAt,
		&report.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}

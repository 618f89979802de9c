package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/watch-market/internal/domain"
)

const listingColumns = `id, seller_id, status, brand, model, reference_number, year, condition,
               price_cents, currency, description, photo_count, created_at, updated_at`

type listingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository instantiates repository.
func NewListingRepository(pool *pgxpool.Pool) ListingRepository {
	return &listingRepository{pool: pool}
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	const query = `
        INSERT INTO listings (seller_id, status, brand, model, reference_number, year, condition,
                              price_cents, currency, description, photo_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		listing.SellerID,
		listing.Status,
		listing.Brand,
		listing.Model,
		listing.ReferenceNumber,
		listing.Year,
		listing.Condition,
		listing.PriceCents,
		listing.Currency,
		listing.Description,
		listing.PhotoCount,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt)
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id=$1`
	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return listing, nil
}

func (r *listingRepository) UpdateFields(ctx context.Context, id string, expected domain.ListingStatus, fields domain.ListingFields) (*domain.Listing, error) {
	query := `
        UPDATE listings SET brand=$1, model=$2, reference_number=$3, year=$4, condition=$5,
            price_cents=$6, currency=$7, description=$8, photo_count=$9, updated_at=NOW()
        WHERE id=$10 AND status=$11
        RETURNING ` + listingColumns
	listing, err := scanListing(r.pool.QueryRow(ctx, query,
		fields.Brand,
		fields.Model,
		fields.ReferenceNumber,
		fields.Year,
		fields.Condition,
		fields.PriceCents,
		fields.Currency,
		fields.Description,
		fields.PhotoCount,
		id,
		expected,
	))
	if err == nil {
		return listing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return nil, r.explainMiss(ctx, r.pool, id)
}

func (r *listingRepository) Transition(ctx context.Context, commit TransitionCommit) (*domain.AuditEntry, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `UPDATE listings SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	cmd, err := tx.Exec(ctx, update, commit.Next, commit.ListingID, commit.Expected)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, r.explainMiss(ctx, tx, commit.ListingID)
	}

	entry := &domain.AuditEntry{
		ListingID:  commit.ListingID,
		FromStatus: commit.Expected,
		ToStatus:   commit.Next,
		ActorID:    commit.ActorID,
		Reason:     commit.Reason,
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return entry, nil
}

func (r *listingRepository) Delete(ctx context.Context, id string, expected domain.ListingStatus) error {
	// audit entries and reports go with the listing through ON DELETE CASCADE
	cmd, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id=$1 AND status=$2`, id, expected)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.explainMiss(ctx, r.pool, id)
	}
	return nil
}

func (r *listingRepository) List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		clauses = append(clauses, fmt.Sprintf("seller_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Brand != nil && strings.TrimSpace(*filter.Brand) != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.Brand)))
		clauses = append(clauses, fmt.Sprintf("LOWER(brand)=$%d", len(args)))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		listingColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *listing)
	}
	return result, rows.Err()
}

func (r *listingRepository) ListPending(ctx context.Context, limit, offset int) ([]domain.PendingListing, error) {
	limit, offset = NormalizePage(limit, offset)
	const query = `
        SELECT l.id, l.seller_id, l.status, l.brand, l.model, l.reference_number, l.year, l.condition,
               l.price_cents, l.currency, l.description, l.photo_count, l.created_at, l.updated_at,
               u.name, u.email, u.verified
        FROM listings l JOIN users u ON u.id = l.seller_id
        WHERE l.status=$1
        ORDER BY l.created_at DESC, l.id DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, domain.ListingStatusPending, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.PendingListing{}
	for rows.Next() {
		var item domain.PendingListing
		if err := rows.Scan(append(listingTargets(&item.Listing),
			&item.SellerName,
			&item.SellerEmail,
			&item.SellerVerified,
		)...); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// explainMiss distinguishes a missing listing from a failed status precondition.
func (r *listingRepository) explainMiss(ctx context.Context, q rowQuerier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func listingTargets(listing *domain.Listing) []any {
	return []any{
		&listing.ID,
		&listing.SellerID,
		&listing.Status,
		&listing.Brand,
		&listing.Model,
		&listing.ReferenceNumber,
		&listing.Year,
		&listing.Condition,
		&listing.PriceCents,
		&listing.Currency,
		&listing.Description,
		&listing.PhotoCount,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	}
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var listing domain.Listing
	if err := row.Scan(listingTargets(&listing)...); err != nil {
		return nil, err
	}
	return &listing, nil
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

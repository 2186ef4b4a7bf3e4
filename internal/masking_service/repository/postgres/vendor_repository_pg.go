package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgVendorRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgVendorRepository(db *pgxpool.Pool, logger *slog.Logger) *PgVendorRepository {
	return &PgVendorRepository{db: db, logger: logger}
}

// GetByName resolves a vendor by case-insensitive exact name match.
func (r *PgVendorRepository) GetByName(ctx context.Context, name string) (*domain.Vendor, error) {
	query := `
		SELECT id, name, COALESCE(campaign_id, ''), COALESCE(test_number, '')
		FROM vendors
		WHERE lower(name) = lower($1)
	`
	vendor := &domain.Vendor{}
	err := r.db.QueryRow(ctx, query, name).Scan(
		&vendor.ID, &vendor.Name, &vendor.CampaignID, &vendor.TestNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting vendor by name", "error", err, "vendor_name", name)
		return nil, err
	}
	return vendor, nil
}

package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PgMaskRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgMaskRepository(db *pgxpool.Pool, logger *slog.Logger) *PgMaskRepository {
	return &PgMaskRepository{db: db, logger: logger}
}

func (r *PgMaskRepository) Create(ctx context.Context, mask *domain.Mask) error {
	query := `
		INSERT INTO masks (id, code, vendor_id, campaign_id, real_number_enc, masked_alias, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		mask.ID, mask.Code, mask.VendorID, nullIfEmpty(mask.CampaignID),
		mask.RealNumberEnc, mask.MaskedAlias, mask.CreatedAt,
	)
	if err != nil {
		// The unique index on masks.code is the backstop for the
		// allocation race; a lost race surfaces as a catchable conflict.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.WarnContext(ctx, "Mask code collision on insert", "code", mask.Code)
			return domain.ErrDuplicateCode
		}
		r.logger.ErrorContext(ctx, "Error creating mask", "error", err, "mask_id", mask.ID, "code", mask.Code)
		return err
	}
	return nil
}

func (r *PgMaskRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	// All historical rows count: codes are never expired or recycled.
	query := `SELECT EXISTS (SELECT 1 FROM masks WHERE code = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Error checking mask code existence", "error", err, "code", code)
		return false, err
	}
	return exists, nil
}

func (r *PgMaskRepository) GetByCode(ctx context.Context, code string) (*domain.Mask, error) {
	query := `
		SELECT id, code, vendor_id, campaign_id, real_number_enc, masked_alias, created_at
		FROM masks
		WHERE code = $1
	`
	mask := &domain.Mask{}
	var campaignID *string
	err := r.db.QueryRow(ctx, query, code).Scan(
		&mask.ID, &mask.Code, &mask.VendorID, &campaignID,
		&mask.RealNumberEnc, &mask.MaskedAlias, &mask.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting mask by code", "error", err, "code", code)
		return nil, err
	}
	if campaignID != nil {
		mask.CampaignID = *campaignID
	}
	return mask, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package domain

import "context"

// MaskRepository manages the encrypted mask mirror.
type MaskRepository interface {
	Create(ctx context.Context, mask *Mask) error
	// CodeExists checks the code against all persisted rows. Codes never
	// expire, so the whole table is the collision surface.
	CodeExists(ctx context.Context, code string) (bool, error)
	GetByCode(ctx context.Context, code string) (*Mask, error)
}

// VendorRepository resolves vendors by name for webhook association.
type VendorRepository interface {
	// GetByName matches case-insensitively on the exact name.
	GetByName(ctx context.Context, name string) (*Vendor, error)
}

// CommandLogRepository records operator command audit rows.
type CommandLogRepository interface {
	Create(ctx context.Context, entry *CommandLog) error
}

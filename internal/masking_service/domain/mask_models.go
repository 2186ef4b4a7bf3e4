package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mask is the encrypted local mirror of one code→number substitution that
// has been propagated into the switch's internal database. Rows are
// insert-only; expiry/recycling of codes is handled outside this service.
type Mask struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"` // 4-digit decimal string, unique
	VendorID      *uuid.UUID `json:"vendor_id,omitempty"`
	CampaignID    string     `json:"campaign_id,omitempty"`
	RealNumberEnc string     `json:"-"` // Fernet token, never serialized out
	MaskedAlias   string     `json:"masked_alias"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewMask creates a Mask instance. ID is generated here; CreatedAt is set to
// the propagation timestamp so the mirror and the switch agree.
func NewMask(code string, vendorID *uuid.UUID, campaignID, realNumberEnc, maskedAlias string, createdAt time.Time) *Mask {
	return &Mask{
		ID:            uuid.New(),
		Code:          code,
		VendorID:      vendorID,
		CampaignID:    campaignID,
		RealNumberEnc: realNumberEnc,
		MaskedAlias:   maskedAlias,
		CreatedAt:     createdAt,
	}
}

// Vendor is a reference entity resolved by name when a webhook carries a
// workspace/vendor field. Read-only from this service's perspective.
type Vendor struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	CampaignID string    `json:"campaign_id,omitempty"`
	TestNumber string    `json:"test_number,omitempty"`
}

// CommandLog is a best-effort audit row for operator-triggered commands.
// Write failures are logged and swallowed; auditing never fails a request.
type CommandLog struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Command     string    `json:"command"`
	Actor       string    `json:"actor"`
	Status      string    `json:"status"`
	DurationMS  int64     `json:"duration_ms"`
	ErrorCode   string    `json:"error_code,omitempty"`
	RawResponse string    `json:"raw_response,omitempty"` // truncated before insert
}

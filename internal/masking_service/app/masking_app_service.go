package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/google/uuid"
)

const (
	// codeAttempts bounds the uniqueness search. Codes never expire, so a
	// well-filled table legitimately exhausts this and the caller gets
	// ErrCodeSpaceExhausted instead of a long scan.
	codeAttempts = 8

	maskFamily   = "mask"
	maskTSFamily = "maskts"

	switchErrorMarker = "Response: Error"
)

// IssueMaskInput carries one webhook-triggered issuance request.
// CallerNumber is required; the rest is optional context.
type IssueMaskInput struct {
	CallerNumber string
	CalledNumber string
	CampaignID   string
	VendorName   string
}

// IssueMaskResult is returned to the boundary on success.
type IssueMaskResult struct {
	Code     string    `json:"code"`
	Alias    string    `json:"alias"`
	IssuedAt time.Time `json:"issued_at"`
}

// MaskingService mints short codes, propagates them into the switch's
// internal database and keeps an encrypted local mirror.
type MaskingService struct {
	maskRepo   domain.MaskRepository
	vendorRepo domain.VendorRepository
	auditRepo  domain.CommandLogRepository
	switchCli  SwitchClient
	cipher     Cipher
	notifier   Notifier // may be nil
	subject    string
	logger     *slog.Logger

	// inflight holds codes claimed by issuances that have not committed
	// yet, closing the window between the uniqueness check and the insert.
	mu       sync.Mutex
	inflight map[string]struct{}

	// overridable in tests
	generateCode func() string
	now          func() time.Time
}

func NewMaskingService(
	maskRepo domain.MaskRepository,
	vendorRepo domain.VendorRepository,
	auditRepo domain.CommandLogRepository,
	switchCli SwitchClient,
	cipher Cipher,
	notifier Notifier,
	notifySubject string,
	logger *slog.Logger,
) *MaskingService {
	return &MaskingService{
		maskRepo:     maskRepo,
		vendorRepo:   vendorRepo,
		auditRepo:    auditRepo,
		switchCli:    switchCli,
		cipher:       cipher,
		notifier:     notifier,
		subject:      notifySubject,
		logger:       logger.With("component", "masking_service"),
		inflight:     make(map[string]struct{}),
		generateCode: randomCode,
		now:          time.Now,
	}
}

// randomCode draws uniformly from 1000–9999: a 4-digit decimal string with
// no leading zero, for operator readability.
func randomCode() string {
	return fmt.Sprintf("%04d", 1000+rand.Intn(9000))
}

// IssueMask runs the full issuance workflow: allocate a unique code, write
// the mapping and its timestamp into the switch, then persist the encrypted
// mirror. A failed switch write aborts before anything is persisted locally;
// a failed mirror insert after successful switch writes is a partial-success
// condition reported as ErrMirrorPersist.
func (s *MaskingService) IssueMask(ctx context.Context, in IssueMaskInput) (*IssueMaskResult, error) {
	started := s.now()

	code, err := s.allocateCode(ctx)
	if err != nil {
		s.audit(ctx, "issue_mask", "code_exhausted", started, err.Error(), "")
		return nil, err
	}
	defer s.releaseCode(code)

	issuedAt := s.now()
	if err := s.propagate(ctx, code, in.CallerNumber, issuedAt); err != nil {
		s.audit(ctx, "issue_mask", "switch_write_failed", started, err.Error(), "")
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(in.CallerNumber)
	if err != nil {
		// Mapping is already live in the switch; same asymmetry as a
		// failed insert, and it must be just as loud.
		s.logger.ErrorContext(ctx, "Mask mirror encryption failed after switch writes; mapping is live but unaudited",
			"code", code, "error", err)
		s.audit(ctx, "issue_mask", "mirror_failed", started, err.Error(), "")
		return nil, fmt.Errorf("%w: %v", domain.ErrMirrorPersist, err)
	}

	alias := maskAlias(in.CallerNumber, code)
	vendorID := s.resolveVendor(ctx, in.VendorName)

	mask := domain.NewMask(code, vendorID, in.CampaignID, encrypted, alias, issuedAt)
	if err := s.maskRepo.Create(ctx, mask); err != nil {
		s.logger.ErrorContext(ctx, "Mask mirror insert failed after switch writes; mapping is live but unaudited",
			"code", code, "error", err)
		s.audit(ctx, "issue_mask", "mirror_failed", started, err.Error(), "")
		return nil, fmt.Errorf("%w: %v", domain.ErrMirrorPersist, err)
	}

	s.logger.InfoContext(ctx, "Mask issued", "code", code, "alias", alias,
		"campaign_id", in.CampaignID, "vendor_attached", vendorID != nil)
	s.audit(ctx, "issue_mask", "success", started, "", "")
	s.notify(ctx, code, alias, in)

	return &IssueMaskResult{Code: code, Alias: alias, IssuedAt: issuedAt}, nil
}

// MaskLookupResult is the decrypted mirror row returned to operators.
type MaskLookupResult struct {
	Code       string    `json:"code"`
	Alias      string    `json:"alias"`
	RealNumber string    `json:"real_number"`
	CampaignID string    `json:"campaign_id,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
}

// LookupMask resolves a code from the local mirror and decrypts the real
// number for the operator. Unknown codes surface domain.ErrNotFound.
func (s *MaskingService) LookupMask(ctx context.Context, actor, code string) (*MaskLookupResult, error) {
	started := s.now()

	mask, err := s.maskRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.auditActor(ctx, "mask_lookup", actor, "not_found", started, "", "")
			return nil, err
		}
		s.auditActor(ctx, "mask_lookup", actor, "error", started, err.Error(), "")
		return nil, fmt.Errorf("failed to load mask %q: %w", code, err)
	}

	realNumber, err := s.cipher.Decrypt(mask.RealNumberEnc)
	if err != nil {
		s.logger.ErrorContext(ctx, "Mask mirror row failed to decrypt; key mismatch or corrupt row",
			"code", code, "error", err)
		s.auditActor(ctx, "mask_lookup", actor, "decrypt_failed", started, err.Error(), "")
		return nil, fmt.Errorf("failed to decrypt mirror row for %q: %w", code, err)
	}

	s.auditActor(ctx, "mask_lookup", actor, "success", started, "", "")
	return &MaskLookupResult{
		Code:       mask.Code,
		Alias:      mask.MaskedAlias,
		RealNumber: realNumber,
		CampaignID: mask.CampaignID,
		IssuedAt:   mask.CreatedAt,
	}, nil
}

// allocateCode finds a candidate absent from both the persisted mirror and
// the in-flight set, and claims it. The claim is released by the caller.
func (s *MaskingService) allocateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate := s.generateCode()

		s.mu.Lock()
		if _, taken := s.inflight[candidate]; taken {
			s.mu.Unlock()
			continue
		}
		s.inflight[candidate] = struct{}{}
		s.mu.Unlock()

		exists, err := s.maskRepo.CodeExists(ctx, candidate)
		if err != nil {
			s.releaseCode(candidate)
			return "", fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if exists {
			s.releaseCode(candidate)
			continue
		}
		return candidate, nil
	}
	return "", domain.ErrCodeSpaceExhausted
}

func (s *MaskingService) releaseCode(code string) {
	s.mu.Lock()
	delete(s.inflight, code)
	s.mu.Unlock()
}

// propagate performs the two switch writes: code→number and code→timestamp,
// in parallel key families of the switch's internal database.
func (s *MaskingService) propagate(ctx context.Context, code, realNumber string, issuedAt time.Time) error {
	writes := []string{
		fmt.Sprintf("database put %s %s %s", maskFamily, code, realNumber),
		fmt.Sprintf("database put %s %s %d", maskTSFamily, code, issuedAt.Unix()),
	}
	for _, command := range writes {
		response, err := s.switchCli.Command(ctx, command)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSwitchWrite, err)
		}
		if strings.Contains(response, switchErrorMarker) {
			return fmt.Errorf("%w: switch rejected %q", domain.ErrSwitchWrite, command)
		}
	}
	return nil
}

func (s *MaskingService) resolveVendor(ctx context.Context, name string) *uuid.UUID {
	if name == "" {
		return nil
	}
	vendor, err := s.vendorRepo.GetByName(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "Vendor lookup failed, issuing without association",
				"vendor_name", name, "error", err)
		}
		return nil
	}
	return &vendor.ID
}

// maskAlias composes the operator-facing alias: fixed prefix, last three
// digits of the real number, and the code in brackets.
func maskAlias(realNumber, code string) string {
	tail := realNumber
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	return fmt.Sprintf("Cust •••%s [%s]", tail, code)
}

// notify publishes the issuance event for the operator channel. Failures
// are logged and never affect the caller's result.
func (s *MaskingService) notify(ctx context.Context, code, alias string, in IssueMaskInput) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"code":        code,
		"alias":       alias,
		"called":      in.CalledNumber,
		"campaign_id": in.CampaignID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal mask.created payload", "error", err, "code", code)
		return
	}
	if err := s.notifier.Publish(ctx, s.subject, payload); err != nil {
		s.logger.WarnContext(ctx, "Supervisor notify failed (non-fatal)", "error", err, "code", code)
	}
}

// audit writes one best-effort command-log row; errors are swallowed.
// Issuance is always webhook-triggered, so the actor is fixed.
func (s *MaskingService) audit(ctx context.Context, command, status string, started time.Time, errorCode, rawResponse string) {
	s.auditActor(ctx, command, "webhook", status, started, errorCode, rawResponse)
}

func (s *MaskingService) auditActor(ctx context.Context, command, actor, status string, started time.Time, errorCode, rawResponse string) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.CommandLog{
		Timestamp:   started,
		Command:     command,
		Actor:       actor,
		Status:      status,
		DurationMS:  s.now().Sub(started).Milliseconds(),
		ErrorCode:   errorCode,
		RawResponse: rawResponse,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "Audit log write failed", "error", err, "command", command)
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AradIT/sipmask/internal/masking_service/adapters/ami"
	"github.com/AradIT/sipmask/internal/masking_service/domain"
)

// StatusService runs the peer/trunk status query end to end: one SIPpeers
// action through the switch client, then classification of the aggregate.
type StatusService struct {
	switchCli SwitchClient
	auditRepo domain.CommandLogRepository // may be nil
	logger    *slog.Logger
}

func NewStatusService(switchCli SwitchClient, auditRepo domain.CommandLogRepository, logger *slog.Logger) *StatusService {
	return &StatusService{
		switchCli: switchCli,
		auditRepo: auditRepo,
		logger:    logger.With("component", "status_service"),
	}
}

// PeerStatus returns the classified report, or a propagated connection or
// classification error. domain.ErrNoPeersFound is the empty-switch outcome.
func (s *StatusService) PeerStatus(ctx context.Context, actor string) (*domain.PeerStatusReport, error) {
	started := time.Now()

	raw, err := s.switchCli.SendAction(ctx, ami.NewAction("SIPpeers"))
	if err != nil {
		s.logger.ErrorContext(ctx, "Peer status query failed", "error", err)
		s.audit(ctx, actor, "connection_failed", started, err.Error(), "")
		return nil, fmt.Errorf("peer status query failed: %w", err)
	}

	report, err := ami.ParsePeerStatus(raw)
	if err != nil {
		s.audit(ctx, actor, "classification_failed", started, err.Error(), raw)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Peer status report produced",
		"total", report.Total(),
		"registered_trunks", len(report.RegisteredTrunks),
		"unregistered_trunks", len(report.UnregisteredTrunks))
	s.audit(ctx, actor, "success", started, "", "")
	return report, nil
}

func (s *StatusService) audit(ctx context.Context, actor, status string, started time.Time, errorCode, rawResponse string) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.CommandLog{
		Timestamp:   started,
		Command:     "sipstatus",
		Actor:       actor,
		Status:      status,
		DurationMS:  time.Since(started).Milliseconds(),
		ErrorCode:   errorCode,
		RawResponse: rawResponse,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "Audit log write failed", "error", err, "command", "sipstatus")
	}
}

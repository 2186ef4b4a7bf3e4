package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/AradIT/sipmask/internal/masking_service/middleware"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
)

// PeerStatusProvider is the slice of the status app service this handler needs.
type PeerStatusProvider interface {
	PeerStatus(ctx context.Context, actor string) (*domain.PeerStatusReport, error)
}

type StatusHandler struct {
	appService PeerStatusProvider
	logger     *slog.Logger
}

func NewStatusHandler(appService PeerStatusProvider, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		appService: appService,
		logger:     logger.With("component", "status_handler"),
	}
}

// HandlePeerStatus runs the peer/trunk status workflow for an operator.
func (h *StatusHandler) HandlePeerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	actor := "unknown"
	if op, ok := middleware.OperatorFromContext(ctx); ok {
		actor = op.Subject
	}

	report, err := h.appService.PeerStatus(ctx, actor)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPeersFound):
			// An empty switch is a valid answer, not a transport failure.
			respondJSON(w, logger, http.StatusOK, peerStatusResponse{
				OK:         true,
				PeersFound: false,
				Message:    "no peers found",
			})
		case errors.Is(err, domain.ErrSwitchResponse):
			respondError(w, logger, http.StatusBadGateway, "Switch returned an error response")
		default:
			logger.ErrorContext(ctx, "Peer status workflow failed", "error", err)
			respondError(w, logger, http.StatusBadGateway, "Could not reach the switch")
		}
		return
	}

	respondJSON(w, logger, http.StatusOK, peerStatusResponse{
		OK:         true,
		PeersFound: true,
		Report:     report,
	})
}

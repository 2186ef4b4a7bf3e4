package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AradIT/sipmask/internal/masking_service/app"
	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/AradIT/sipmask/internal/masking_service/middleware"
	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
)

// MaskResolver is the slice of the masking app service this handler needs.
type MaskResolver interface {
	LookupMask(ctx context.Context, actor, code string) (*app.MaskLookupResult, error)
}

type LookupHandler struct {
	appService MaskResolver
	logger     *slog.Logger
}

func NewLookupHandler(appService MaskResolver, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{
		appService: appService,
		logger:     logger.With("component", "lookup_handler"),
	}
}

// HandleMaskLookup resolves a code to its decrypted mirror row for an operator.
func (h *LookupHandler) HandleMaskLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	code := chi.URLParam(r, "code")
	if code == "" {
		respondError(w, logger, http.StatusBadRequest, "Mask code is required")
		return
	}

	actor := "unknown"
	if op, ok := middleware.OperatorFromContext(ctx); ok {
		actor = op.Subject
	}

	result, err := h.appService.LookupMask(ctx, actor, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, logger, http.StatusNotFound, "Unknown mask code")
			return
		}
		logger.ErrorContext(ctx, "Mask lookup failed", "code", code, "error", err)
		respondError(w, logger, http.StatusInternalServerError, "Could not resolve mask code")
		return
	}

	respondJSON(w, logger, http.StatusOK, maskLookupResponse{
		OK:         true,
		Code:       result.Code,
		Alias:      result.Alias,
		RealNumber: result.RealNumber,
		CampaignID: result.CampaignID,
		IssuedAt:   result.IssuedAt.Unix(),
	})
}

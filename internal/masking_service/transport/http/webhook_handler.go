package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AradIT/sipmask/internal/masking_service/app"
	"github.com/AradIT/sipmask/internal/masking_service/domain"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
)

const MaxRequestBodySize = 1 << 20 // 1 MB

// MaskIssuer is the slice of the masking app service the webhook needs;
// an interface so tests can substitute a mock.
type MaskIssuer interface {
	IssueMask(ctx context.Context, in app.IssueMaskInput) (*app.IssueMaskResult, error)
}

type WebhookHandler struct {
	appService MaskIssuer
	secret     string
	logger     *slog.Logger
}

func NewWebhookHandler(appService MaskIssuer, webhookSecret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		appService: appService,
		secret:     webhookSecret,
		logger:     logger.With("component", "webhook_handler"),
	}
}

// HandleDialicsWebhook receives call events from the tracking vendor and
// triggers mask issuance. The boundary authenticates with a pre-shared
// secret header before anything else runs.
func (h *WebhookHandler) HandleDialicsWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	presented := r.Header.Get("X-Webhook-Secret")
	if presented == "" {
		presented = r.Header.Get("X-Dialics-Secret")
	}
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(h.secret)) != 1 {
		logger.WarnContext(ctx, "Webhook secret mismatch", "remote_addr", r.RemoteAddr)
		respondError(w, logger, http.StatusForbidden, "Invalid webhook secret")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var payload dialicsWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		logger.WarnContext(ctx, "Failed to decode webhook payload", "error", err)
		respondError(w, logger, http.StatusBadRequest, "Malformed JSON payload")
		return
	}

	caller := payload.callerNumber()
	if caller == "" {
		respondError(w, logger, http.StatusBadRequest, "Missing caller_number")
		return
	}

	result, err := h.appService.IssueMask(ctx, app.IssueMaskInput{
		CallerNumber: caller,
		CalledNumber: payload.calledNumber(),
		CampaignID:   payload.campaignID(),
		VendorName:   payload.vendorName(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "Mask issuance failed", "error", err)
		switch {
		case errors.Is(err, domain.ErrCodeSpaceExhausted):
			respondError(w, logger, http.StatusServiceUnavailable, "Failed to generate unique code")
		case errors.Is(err, domain.ErrSwitchWrite):
			respondError(w, logger, http.StatusBadGateway, "Switch write failed")
		case errors.Is(err, domain.ErrMirrorPersist):
			// Partial success: the mapping is live in the switch but the
			// local mirror is missing. The caller must treat this as failed.
			respondError(w, logger, http.StatusInternalServerError, "Mask recorded in switch but mirror persistence failed")
		default:
			respondError(w, logger, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	respondJSON(w, logger, http.StatusOK, maskIssuedResponse{
		OK:    true,
		Code:  result.Code,
		Alias: result.Alias,
		TS:    result.IssuedAt.Unix(),
	})
}

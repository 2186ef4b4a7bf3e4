package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
)

// dialicsWebhookRequest mirrors the vendor's payload. Field names vary
// between their webhook versions, so each value has fallback keys.
type dialicsWebhookRequest struct {
	CallerNumber string `json:"caller_number"`
	Caller       string `json:"caller"`
	From         string `json:"from"`

	CalledNumber string `json:"called_number"`
	Called       string `json:"called"`
	To           string `json:"to"`

	CampaignID string `json:"campaign_id"`
	Campaign   string `json:"campaign"`

	Workspace string `json:"workspace"`
	Vendor    string `json:"vendor"`
}

func (r *dialicsWebhookRequest) callerNumber() string {
	return firstNonEmpty(r.CallerNumber, r.Caller, r.From)
}

func (r *dialicsWebhookRequest) calledNumber() string {
	return firstNonEmpty(r.CalledNumber, r.Called, r.To)
}

func (r *dialicsWebhookRequest) campaignID() string {
	return firstNonEmpty(r.CampaignID, r.Campaign)
}

func (r *dialicsWebhookRequest) vendorName() string {
	return firstNonEmpty(r.Workspace, r.Vendor)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type maskIssuedResponse struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code"`
	Alias string `json:"alias"`
	TS    int64  `json:"ts"`
}

type maskLookupResponse struct {
	OK         bool   `json:"ok"`
	Code       string `json:"code"`
	Alias      string `json:"alias"`
	RealNumber string `json:"real_number"`
	CampaignID string `json:"campaign_id,omitempty"`
	IssuedAt   int64  `json:"issued_at"`
}

type peerStatusResponse struct {
	OK         bool                     `json:"ok"`
	PeersFound bool                     `json:"peers_found"`
	Message    string                   `json:"message,omitempty"`
	Report     *domain.PeerStatusReport `json:"report,omitempty"`
}

type errorResponse struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, detail string) {
	respondJSON(w, logger, status, errorResponse{OK: false, Detail: detail})
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AradIT/sipmask/internal/masking_service/app"
	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMaskIssuer struct {
	mock.Mock
}

func (m *MockMaskIssuer) IssueMask(ctx context.Context, in app.IssueMaskInput) (*app.IssueMaskResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.IssueMaskResult), args.Error(1)
}

func newWebhookHandler(issuer MaskIssuer) *WebhookHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWebhookHandler(issuer, "topsecret", logger)
}

func postWebhook(t *testing.T, handler *WebhookHandler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/dialics", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rr := httptest.NewRecorder()
	handler.HandleDialicsWebhook(rr, req)
	return rr
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	issuer := new(MockMaskIssuer)
	rr := postWebhook(t, newWebhookHandler(issuer), "", `{"caller_number":"+15551234567"}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	issuer.AssertNotCalled(t, "IssueMask", mock.Anything, mock.Anything)
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	issuer := new(MockMaskIssuer)
	rr := postWebhook(t, newWebhookHandler(issuer), "wrong", `{"caller_number":"+15551234567"}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	issuer.AssertNotCalled(t, "IssueMask", mock.Anything, mock.Anything)
}

func TestWebhookRejectsWhenNoSecretConfigured(t *testing.T) {
	// An unconfigured secret must fail closed, never open.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewWebhookHandler(new(MockMaskIssuer), "", logger)
	rr := postWebhook(t, handler, "anything", `{"caller_number":"+15551234567"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestWebhookAcceptsAlternateSecretHeader(t *testing.T) {
	issuer := new(MockMaskIssuer)
	issuer.On("IssueMask", mock.Anything, mock.Anything).
		Return(&app.IssueMaskResult{Code: "1234", Alias: "Cust •••567 [1234]", IssuedAt: time.Now()}, nil)
	handler := newWebhookHandler(issuer)

	req := httptest.NewRequest(http.MethodPost, "/webhook/dialics", strings.NewReader(`{"caller":"+15551234567"}`))
	req.Header.Set("X-Dialics-Secret", "topsecret")
	rr := httptest.NewRecorder()
	handler.HandleDialicsWebhook(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookRejectsMissingCaller(t *testing.T) {
	issuer := new(MockMaskIssuer)
	rr := postWebhook(t, newWebhookHandler(issuer), "topsecret", `{"campaign_id":"cmp-1"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	issuer.AssertNotCalled(t, "IssueMask", mock.Anything, mock.Anything)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	rr := postWebhook(t, newWebhookHandler(new(MockMaskIssuer)), "topsecret", `{"caller_number":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookSuccessMapsFallbackFields(t *testing.T) {
	issuer := new(MockMaskIssuer)
	issuedAt := time.Unix(1700000000, 0)
	issuer.On("IssueMask", mock.Anything, app.IssueMaskInput{
		CallerNumber: "+15551234567",
		CalledNumber: "+15559998888",
		CampaignID:   "cmp-1",
		VendorName:   "Dialics",
	}).Return(&app.IssueMaskResult{Code: "4521", Alias: "Cust •••567 [4521]", IssuedAt: issuedAt}, nil).Once()

	body := `{"from":"+15551234567","to":"+15559998888","campaign":"cmp-1","workspace":"Dialics"}`
	rr := postWebhook(t, newWebhookHandler(issuer), "topsecret", body)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp maskIssuedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "4521", resp.Code)
	assert.Equal(t, "Cust •••567 [4521]", resp.Alias)
	assert.Equal(t, issuedAt.Unix(), resp.TS)
	issuer.AssertExpectations(t)
}

func TestWebhookErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"code exhaustion", domain.ErrCodeSpaceExhausted, http.StatusServiceUnavailable},
		{"switch write", domain.ErrSwitchWrite, http.StatusBadGateway},
		{"mirror persist", domain.ErrMirrorPersist, http.StatusInternalServerError},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issuer := new(MockMaskIssuer)
			issuer.On("IssueMask", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			rr := postWebhook(t, newWebhookHandler(issuer), "topsecret", `{"caller_number":"+15551234567"}`)
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/AradIT/sipmask/internal/masking_service/adapters/ami"
	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStatusService(switchCli SwitchClient) *StatusService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStatusService(switchCli, nil, logger)
}

func TestPeerStatusReturnsClassifiedReport(t *testing.T) {
	raw := "Response: Success\r\n\r\n" +
		"Event: PeerEntry\r\nObjectName: Trunk1\r\nStatus: OK (1 ms)\r\n\r\n" +
		"Event: PeerEntry\r\nObjectName: 4521\r\nStatus: UNREACHABLE\r\n\r\n" +
		"Event: PeerlistComplete\r\nListItems: 2\r\n\r\n"

	switchCli := new(MockSwitchClient)
	switchCli.On("SendAction", mock.Anything, mock.MatchedBy(func(a *ami.Action) bool {
		return a.Name() == "SIPpeers"
	})).Return(raw, nil).Once()

	report, err := newStatusService(switchCli).PeerStatus(context.Background(), "operator1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total())
	require.Len(t, report.RegisteredTrunks, 1)
	assert.Equal(t, "Trunk1", report.RegisteredTrunks[0].Name)
	require.Len(t, report.UnregisteredExtensions, 1)
	assert.Equal(t, "4521", report.UnregisteredExtensions[0].Name)
	switchCli.AssertExpectations(t)
}

func TestPeerStatusPropagatesConnectionError(t *testing.T) {
	switchCli := new(MockSwitchClient)
	switchCli.On("SendAction", mock.Anything, mock.Anything).
		Return("", errors.New("failed to connect to AMI")).Once()

	_, err := newStatusService(switchCli).PeerStatus(context.Background(), "operator1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "peer status query failed")
}

func TestPeerStatusSurfacesSwitchError(t *testing.T) {
	switchCli := new(MockSwitchClient)
	switchCli.On("SendAction", mock.Anything, mock.Anything).
		Return("Response: Error\r\nMessage: Error: Permission denied\r\n\r\n", nil).Once()

	_, err := newStatusService(switchCli).PeerStatus(context.Background(), "operator1")
	assert.ErrorIs(t, err, domain.ErrSwitchResponse)
}

func TestPeerStatusDistinguishesEmptyList(t *testing.T) {
	switchCli := new(MockSwitchClient)
	switchCli.On("SendAction", mock.Anything, mock.Anything).
		Return("Response: Success\r\n\r\nEvent: PeerlistComplete\r\nListItems: 0\r\n\r\n", nil).Once()

	_, err := newStatusService(switchCli).PeerStatus(context.Background(), "operator1")
	assert.ErrorIs(t, err, domain.ErrNoPeersFound)
}

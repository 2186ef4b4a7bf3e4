package ami

import (
	"testing"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePeerResponse = "Response: Success\r\n" +
	"EventList: start\r\n" +
	"Message: Peer status list will follow\r\n\r\n" +
	"Event: PeerEntry\r\n" +
	"Channeltype: SIP\r\n" +
	"ObjectName: Trunk1\r\n" +
	"Status: OK (1 ms)\r\n\r\n" +
	"Event: PeerEntry\r\n" +
	"ObjectName: 4521\r\n" +
	"Status: UNREACHABLE\r\n\r\n" +
	"Event: PeerEntry\r\n" +
	"ObjectName: 4522\r\n" +
	"Status: OK (20 ms)\r\n\r\n" +
	"Event: PeerEntry\r\n" +
	"ObjectName: Provider_Backup\r\n" +
	"Status: FAILED\r\n\r\n" +
	"Event: PeerlistComplete\r\n" +
	"EventList: Complete\r\n" +
	"ListItems: 4\r\n\r\n"

func TestParsePeerStatusClassifiesAllEntries(t *testing.T) {
	report, err := ParsePeerStatus(samplePeerResponse)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total())
	require.Len(t, report.RegisteredTrunks, 1)
	assert.Equal(t, domain.PeerEntry{Name: "Trunk1", Status: "OK (1 ms)"}, report.RegisteredTrunks[0])

	require.Len(t, report.UnregisteredExtensions, 1)
	assert.Equal(t, "4521", report.UnregisteredExtensions[0].Name)

	require.Len(t, report.RegisteredExtensions, 1)
	assert.Equal(t, "4522", report.RegisteredExtensions[0].Name)

	require.Len(t, report.UnregisteredTrunks, 1)
	assert.Equal(t, "Provider_Backup", report.UnregisteredTrunks[0].Name)
}

func TestParsePeerStatusPreservesOrder(t *testing.T) {
	raw := "Event: PeerEntry\r\nObjectName: TrunkB\r\nStatus: OK\r\n\r\n" +
		"Event: PeerEntry\r\nObjectName: TrunkA\r\nStatus: OK\r\n\r\n" +
		"Event: PeerlistComplete\r\n\r\n"

	report, err := ParsePeerStatus(raw)
	require.NoError(t, err)
	require.Len(t, report.RegisteredTrunks, 2)
	assert.Equal(t, "TrunkB", report.RegisteredTrunks[0].Name)
	assert.Equal(t, "TrunkA", report.RegisteredTrunks[1].Name)
}

func TestParsePeerStatusToleratesExtraWhitespace(t *testing.T) {
	raw := "Event: PeerEntry\r\n" +
		"  ObjectName :   Trunk1  \r\n" +
		"  Status : OK (3 ms)\r\n\r\n" +
		"Event: PeerlistComplete\r\n\r\n"

	report, err := ParsePeerStatus(raw)
	require.NoError(t, err)
	require.Len(t, report.RegisteredTrunks, 1)
	assert.Equal(t, "Trunk1", report.RegisteredTrunks[0].Name)
	assert.Equal(t, "OK (3 ms)", report.RegisteredTrunks[0].Status)
}

func TestParsePeerStatusFirstMatchWins(t *testing.T) {
	// Duplicate field labels inside one block: the first occurrence is used.
	raw := "Event: PeerEntry\r\n" +
		"ObjectName: Trunk1\r\n" +
		"Status: OK\r\n" +
		"Status: LAGGED\r\n\r\n" +
		"Event: PeerlistComplete\r\n\r\n"

	report, err := ParsePeerStatus(raw)
	require.NoError(t, err)
	require.Len(t, report.RegisteredTrunks, 1)
	assert.Equal(t, "OK", report.RegisteredTrunks[0].Status)
}

func TestParsePeerStatusErrorResponse(t *testing.T) {
	_, err := ParsePeerStatus("Response: Error\r\nMessage: Error: Permission denied\r\n\r\n")
	assert.ErrorIs(t, err, domain.ErrSwitchResponse)
}

func TestParsePeerStatusNoPeers(t *testing.T) {
	raw := "Response: Success\r\nEventList: start\r\n\r\n" +
		"Event: PeerlistComplete\r\nListItems: 0\r\n\r\n"

	_, err := ParsePeerStatus(raw)
	assert.ErrorIs(t, err, domain.ErrNoPeersFound)
}

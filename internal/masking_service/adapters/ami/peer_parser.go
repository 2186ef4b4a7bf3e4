package ami

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AradIT/sipmask/internal/masking_service/domain"
)

// AMI responses have no strict grammar; fields are extracted by pattern
// search, first match wins, tolerant of surrounding whitespace.
var (
	peerEntryRe  = regexp.MustCompile(`(?m)^\s*Event\s*:\s*PeerEntry\s*$`)
	objectNameRe = regexp.MustCompile(`(?m)^\s*ObjectName\s*:\s*(.+?)\s*$`)
	statusRe     = regexp.MustCompile(`(?m)^\s*Status\s*:\s*(.+?)\s*$`)
)

const errorMarker = "Error:"

// ParsePeerStatus turns one aggregated peer status response into a
// classified report. An "Error:"-flagged response and a well-formed
// response with zero peer entries are distinct failure outcomes.
func ParsePeerStatus(raw string) (*domain.PeerStatusReport, error) {
	if strings.Contains(raw, errorMarker) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSwitchResponse, firstLineWith(raw, errorMarker))
	}

	blocks := peerEntryBlocks(raw)
	if len(blocks) == 0 {
		return nil, domain.ErrNoPeersFound
	}

	report := &domain.PeerStatusReport{}
	for _, block := range blocks {
		entry := domain.PeerEntry{
			Name:   firstSubmatch(objectNameRe, block),
			Status: firstSubmatch(statusRe, block),
		}
		// "OK" as a literal substring: decorated statuses such as
		// "OK (20 ms)" still count as registered.
		registered := strings.Contains(entry.Status, "OK")
		switch {
		case entry.IsExtension() && registered:
			report.RegisteredExtensions = append(report.RegisteredExtensions, entry)
		case entry.IsExtension():
			report.UnregisteredExtensions = append(report.UnregisteredExtensions, entry)
		case registered:
			report.RegisteredTrunks = append(report.RegisteredTrunks, entry)
		default:
			report.UnregisteredTrunks = append(report.UnregisteredTrunks, entry)
		}
	}
	return report, nil
}

// peerEntryBlocks slices the raw text into one chunk per PeerEntry event,
// each bounded by the next PeerEntry or the list-complete marker.
func peerEntryBlocks(raw string) []string {
	starts := peerEntryRe.FindAllStringIndex(raw, -1)
	if len(starts) == 0 {
		return nil
	}

	var blocks []string
	for i, loc := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		block := raw[loc[0]:end]
		if idx := strings.Index(block, peerlistCompleteMarker); idx >= 0 {
			block = block[:idx]
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func firstSubmatch(re *regexp.Regexp, block string) string {
	m := re.FindStringSubmatch(block)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func firstLineWith(raw, marker string) string {
	for _, line := range strings.Split(raw, "\n") {
		if strings.Contains(line, marker) {
			return strings.TrimSpace(line)
		}
	}
	return marker
}

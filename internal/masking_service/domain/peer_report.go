package domain

// PeerEntry is one endpoint extracted from a peer status response.
type PeerEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// IsExtension reports whether the peer name is all digits (an internal
// extension) as opposed to a named trunk.
func (p PeerEntry) IsExtension() bool {
	if p.Name == "" {
		return false
	}
	for _, r := range p.Name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PeerStatusReport groups classified peers into four ordered buckets,
// each preserving the order entries appeared in the switch response.
type PeerStatusReport struct {
	RegisteredTrunks       []PeerEntry `json:"registered_trunks"`
	UnregisteredTrunks     []PeerEntry `json:"unregistered_trunks"`
	RegisteredExtensions   []PeerEntry `json:"registered_extensions"`
	UnregisteredExtensions []PeerEntry `json:"unregistered_extensions"`
}

// Total returns the number of peers across all buckets.
func (r *PeerStatusReport) Total() int {
	return len(r.RegisteredTrunks) + len(r.UnregisteredTrunks) +
		len(r.RegisteredExtensions) + len(r.UnregisteredExtensions)
}

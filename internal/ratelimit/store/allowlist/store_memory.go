package allowlist

import (
	"context"
	"net/netip"
)

// StaticAllowlistStore exempts a fixed set of networks (uptime monitors,
// the storefront's own render servers) from rate limiting.
type StaticAllowlistStore struct {
	prefixes []netip.Prefix
}

// NewStatic builds an allowlist from parsed prefixes.
func NewStatic(prefixes []netip.Prefix) *StaticAllowlistStore {
	return &StaticAllowlistStore{prefixes: prefixes}
}

// IsAllowlisted reports whether ip falls inside an allowlisted network.
// Unparseable identifiers are never allowlisted.
func (s *StaticAllowlistStore) IsAllowlisted(_ context.Context, ip string) (bool, error) {
	if len(s.prefixes) == 0 || ip == "" {
		return false, nil
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false, nil
	}
	addr = addr.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

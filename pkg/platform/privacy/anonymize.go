// Package privacy masks personal data (client IPs, email addresses) before
// it reaches logs.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP keeps only the network part of an address: /24 for IPv4
// (IPv4-mapped IPv6 included) and /48 for IPv6. Empty input yields
// "unknown" and unparseable input yields "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// RedactEmail keeps the first character of the local part and the domain:
// "jane.doe@example.com" becomes "j***@example.com".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return "invalid"
	}
	return local[:1] + "***@" + domain
}

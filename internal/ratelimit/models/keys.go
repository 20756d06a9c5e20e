package models

import (
	"fmt"
	"strings"
)

// KeyPrefix names the identity a window is keyed on.
type KeyPrefix string

const KeyPrefixIP KeyPrefix = "ip"

// RateLimitKey builds the storage key for one (identity, endpoint class) window.
type RateLimitKey struct {
	prefix     KeyPrefix
	identifier string
	class      EndpointClass
}

// NewRateLimitKey creates a key; the identifier is escaped so a crafted value
// cannot land in a neighbouring window.
func NewRateLimitKey(prefix KeyPrefix, identifier string, class EndpointClass) RateLimitKey {
	return RateLimitKey{
		prefix:     prefix,
		identifier: sanitizeKeySegment(identifier),
		class:      class,
	}
}

// NewIPKey is shorthand for an IP-keyed window.
func NewIPKey(ip string, class EndpointClass) RateLimitKey {
	return NewRateLimitKey(KeyPrefixIP, ip, class)
}

func (k RateLimitKey) String() string {
	if k.class == "" {
		return fmt.Sprintf("%s:%s", k.prefix, k.identifier)
	}
	return fmt.Sprintf("%s:%s:%s", k.prefix, k.identifier, k.class)
}

// sanitizeKeySegment escapes '_' as "__" and then ':' as "_c". IPv6
// addresses contain colons, so without this "ip:::1:listing" would be ambiguous.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}

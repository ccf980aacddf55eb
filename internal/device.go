package internal

import "strings"

const ipv4MappedPrefix = "::ffff:"

// NormalizeIP reduces an address to its first two dot-separated segments
// after stripping an IPv4-mapped IPv6 prefix. Empty input yields "".
//
// "::ffff:203.0.113.7" and "203.0.113.9" both normalize to "203.0".
// Addresses without dots are returned whole after prefix stripping.
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	if len(ip) >= len(ipv4MappedPrefix) && strings.EqualFold(ip[:len(ipv4MappedPrefix)], ipv4MappedPrefix) {
		ip = ip[len(ipv4MappedPrefix):]
	}

	parts := strings.SplitN(ip, ".", 3)
	if len(parts) < 2 {
		return ip
	}
	return parts[0] + "." + parts[1]
}

// IPChanged compares two addresses at the granularity of NormalizeIP.
func IPChanged(stored, current string) bool {
	return NormalizeIP(stored) != NormalizeIP(current)
}

// UserAgentChanged compares user agents byte for byte.
func UserAgentChanged(stored, current string) bool {
	return stored != current
}

// Package mask redacts personal data and credentials before they reach logs.
package mask

import (
	"net"
	"strings"
)

// Email keeps the first character of the local part and the domain:
// "alice@example.com" becomes "a***@example.com".
func Email(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// Token keeps the first ten and last four characters of long values and
// hides short ones completely.
func Token(token string) string {
	if len(token) <= 14 {
		return "***"
	}
	return token[:10] + "***" + token[len(token)-4:]
}

// IP zeroes the host part: the last octet for IPv4, everything after the
// first four groups for IPv6.
func IP(addr string) string {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return "***"
	}
	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}
	masked := ip.Mask(net.CIDRMask(64, 128))
	return masked.String()
}

// Key masks a verification store key. Keys are either a bare email or a
// purpose-qualified "<purpose>:<email>".
func Key(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 && strings.Contains(key[i+1:], "@") {
		return key[:i+1] + Email(key[i+1:])
	}
	if strings.Contains(key, "@") {
		return Email(key)
	}
	return Token(key)
}

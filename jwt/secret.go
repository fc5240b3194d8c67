package jwt

import "errors"

// MinSecretLength is the shortest HMAC-SHA256 secret accepted at startup.
const MinSecretLength = 32

var (
	// ErrSecretMissing is returned when no signing secret was configured.
	ErrSecretMissing = errors.New("signing secret missing")
	// ErrSecretTooShort is returned for secrets shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("signing secret shorter than 32 characters")
	// ErrSecretPlaceholder is returned for well-known sample secrets.
	ErrSecretPlaceholder = errors.New("signing secret is a known placeholder")
	// ErrSecretWeak is returned for secrets containing runs of 4+ repeated or
	// 4+ sequential characters.
	ErrSecretWeak = errors.New("signing secret matches a weak pattern")
)

var placeholderSecrets = map[string]struct{}{
	"your-super-super-long-and-secure-secret-key-for-jwt-hs256": {},
	"change-me-change-me-change-me-change-me":                   {},
	"please-change-this-secret-in-production":                   {},
}

// ValidateSecret applies the startup secret policy. Checks run from most to
// least severe, so ErrSecretWeak is only returned for secrets that are
// otherwise acceptable.
func ValidateSecret(secret string) error {
	if secret == "" {
		return ErrSecretMissing
	}
	if len(secret) < MinSecretLength {
		return ErrSecretTooShort
	}
	if _, ok := placeholderSecrets[secret]; ok {
		return ErrSecretPlaceholder
	}
	if hasRepeatedRun(secret, 4) || hasSequentialRun(secret, 4) {
		return ErrSecretWeak
	}
	return nil
}

func hasRepeatedRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}

// hasSequentialRun matches ascending runs such as "abcd" or "1234".
func hasSequentialRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1]+1 {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}

package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ErrOTPDigits is returned for code lengths outside [6, 10].
var ErrOTPDigits = errors.New("invalid otp digits")

// NewOTP returns a uniformly random decimal code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", ErrOTPDigits
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// IsOTP reports whether s has the shape of a code produced by NewOTP.
func IsOTP(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

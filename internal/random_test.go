package internal

import (
	"errors"
	"testing"
)

func TestNewOTPShape(t *testing.T) {
	for _, digits := range []int{6, 8, 10} {
		code, err := NewOTP(digits)
		if err != nil {
			t.Fatalf("NewOTP(%d) error: %v", digits, err)
		}
		if !IsOTP(code, digits) {
			t.Fatalf("NewOTP(%d) produced %q", digits, code)
		}
	}
}

func TestNewOTPRejectsBadLength(t *testing.T) {
	for _, digits := range []int{0, 5, 11} {
		if _, err := NewOTP(digits); !errors.Is(err, ErrOTPDigits) {
			t.Fatalf("NewOTP(%d): expected ErrOTPDigits, got %v", digits, err)
		}
	}
}

func TestNewOTPSpreads(t *testing.T) {
	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		code, err := NewOTP(6)
		if err != nil {
			t.Fatalf("NewOTP error: %v", err)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 150 {
		t.Fatalf("suspiciously few distinct codes: %d", len(seen))
	}
}

func TestIsOTP(t *testing.T) {
	cases := map[string]bool{
		"123456":  true,
		"12345":   false,
		"12345a":  false,
		"":        false,
		"1234567": false,
	}
	for in, want := range cases {
		if got := IsOTP(in, 6); got != want {
			t.Fatalf("IsOTP(%q) = %v, want %v", in, got, want)
		}
	}
}

package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "k9$Qm2!vX7#pL4@wZ8^rT1&nB5*hD3(e"

func newTestCodec(t *testing.T, now func() time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(Config{Secret: []byte(testSecret), Now: now})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := newTestCodec(t, nil)

	for _, subject := range []string{"a@x.com", "user.name+tag@example.org", "x"} {
		token, issued, err := c.Issue(subject, 42, TokenAccess, time.Minute)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if strings.Count(token, ".") != 2 {
			t.Fatalf("expected three-part token, got %q", token)
		}

		claims, err := c.Verify(token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if claims.TokenType != TokenAccess {
			t.Fatalf("expected access token, got %q", claims.TokenType)
		}
		if claims.Email() != subject {
			t.Fatalf("expected subject %q, got %q", subject, claims.Email())
		}
		if claims.UserID != 42 {
			t.Fatalf("expected user id 42, got %d", claims.UserID)
		}
		if claims.TokenID() != issued.TokenID() {
			t.Fatalf("jti mismatch: %q vs %q", claims.TokenID(), issued.TokenID())
		}
	}
}

func TestIssueProducesUniqueTokenIDs(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, func() time.Time { return fixed })

	seen := make(map[string]struct{}, 1000)
	tokens := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, claims, err := c.Issue("a@x.com", 1, TokenAccess, time.Minute)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if _, dup := seen[claims.TokenID()]; dup {
			t.Fatalf("duplicate jti at iteration %d", i)
		}
		if _, dup := tokens[token]; dup {
			t.Fatalf("duplicate token at iteration %d", i)
		}
		seen[claims.TokenID()] = struct{}{}
		tokens[token] = struct{}{}
	}
}

func TestVerifyExpiredWithValidSignature(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	issuer := newTestCodec(t, func() time.Time { return past })
	token, _, err := issuer.Issue("a@x.com", 1, TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := newTestCodec(t, nil)
	if _, err := verifier.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	c := newTestCodec(t, nil)
	other, err := NewCodec(Config{Secret: []byte("another-secret-Zq7!Lm3@Xp9#Rt5$Wv")})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, _, err := other.Issue("a@x.com", 1, TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	c := newTestCodec(t, nil)
	token, _, err := c.Issue("a@x.com", 1, TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	forged := &Claims{
		UserID:    1,
		TokenType: TokenAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        "forged",
			Subject:   "admin@x.com",
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forgedToken, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, forged).SignedString([]byte("x"))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}

	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forgedToken, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := c.Verify(spliced); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for spliced payload, got %v", err)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	c := newTestCodec(t, nil)
	claims := &Claims{
		UserID:    1,
		TokenType: TokenAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "a@x.com",
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	c := newTestCodec(t, nil)
	for _, input := range []string{"", "not-a-token", "a.b", "a.b.c", "....", "eyJhbGciOiJIUzI1NiJ9.!!!.sig"} {
		if _, err := c.Verify(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("input %q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestVerifyTypeRejectsRefreshAsAccess(t *testing.T) {
	c := newTestCodec(t, nil)
	refresh, _, err := c.Issue("a@x.com", 1, TokenRefresh, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := c.VerifyType(refresh, TokenAccess); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected refresh token to be rejected as access, got %v", err)
	}
	if _, err := c.VerifyType(refresh, TokenRefresh); err != nil {
		t.Fatalf("expected refresh token to pass as refresh: %v", err)
	}
}

func TestVerifyRejectsUnknownTokenType(t *testing.T) {
	c := newTestCodec(t, nil)
	claims := &Claims{
		UserID:    1,
		TokenType: "id",
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "a@x.com",
			IssuedAt:  gjwt.NewNumericDate(time.Now()),
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDecodeUnsafe(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	c := newTestCodec(t, func() time.Time { return past })
	token, issued, err := c.Issue("a@x.com", 7, TokenRefresh, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := c.DecodeUnsafe(token)
	if claims == nil {
		t.Fatal("expected claims from expired token")
	}
	if claims.TokenID() != issued.TokenID() || claims.UserID != 7 {
		t.Fatalf("unexpected decoded claims: %+v", claims)
	}
	if c.DecodeUnsafe("garbage") != nil {
		t.Fatal("expected nil claims for garbage input")
	}
}

func TestClaimsRemaining(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newTestCodec(t, func() time.Time { return now })
	_, claims, err := c.Issue("a@x.com", 1, TokenAccess, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got := claims.Remaining(now.Add(4 * time.Minute)); got != 6*time.Minute {
		t.Fatalf("expected 6m remaining, got %v", got)
	}
	if got := claims.Remaining(now.Add(time.Hour)); got != 0 {
		t.Fatalf("expected zero remaining after expiry, got %v", got)
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	c := newTestCodec(t, nil)
	if _, _, err := c.Issue("a@x.com", 1, "id", time.Minute); err == nil {
		t.Fatal("expected unknown token type to fail")
	}
	if _, _, err := c.Issue("a@x.com", 1, TokenAccess, 0); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
	if _, err := NewCodec(Config{}); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
}

package verification

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is the validity window of a verification code.
const DefaultTTL = 5 * time.Minute

var (
	// ErrUnavailable marks connectivity, backend and timeout failures. Only
	// errors matching it trigger failover.
	ErrUnavailable = errors.New("verification backend unavailable")
	// ErrStorageUnavailable is returned by FailoverStore when both backends
	// failed for the same call.
	ErrStorageUnavailable = errors.New("verification storage unavailable")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("verification key is empty")
)

// Store persists one live code per key.
type Store interface {
	Save(ctx context.Context, key, value string) error
	Find(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	ValidateAndDelete(ctx context.Context, key, candidate string) (bool, error)
}

// Outcome is the result of a compare-and-delete.
type Outcome int

const (
	// Absent means no live code exists for the key.
	Absent Outcome = iota
	// Mismatch means a live code exists and differs from the candidate.
	Mismatch
	// Consumed means the candidate matched and the code was deleted.
	Consumed
)

// Consumer is implemented by stores whose compare-and-delete tells an absent
// code apart from a mismatched one in the same atomic step.
type Consumer interface {
	Consume(ctx context.Context, key, candidate string) (Outcome, error)
}

// consume runs the compare-and-delete of s. Stores that are not a Consumer
// are asked with Find after a failed match.
func consume(ctx context.Context, s Store, key, candidate string) (Outcome, error) {
	if c, ok := s.(Consumer); ok {
		return c.Consume(ctx, key, candidate)
	}
	ok, err := s.ValidateAndDelete(ctx, key, candidate)
	if err != nil {
		return Absent, err
	}
	if ok {
		return Consumed, nil
	}
	_, found, err := s.Find(ctx, key)
	if err != nil {
		return Absent, err
	}
	if found {
		return Mismatch, nil
	}
	return Absent, nil
}

// IsUnavailable reports whether err is a backend failure that warrants
// trying another store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

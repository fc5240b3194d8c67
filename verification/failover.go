package verification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/mask"
)

const (
	// DefaultPrimaryTimeout bounds every call to the primary backend.
	DefaultPrimaryTimeout = 2 * time.Second
	// DefaultSecondaryTimeout bounds every call to the secondary backend.
	DefaultSecondaryTimeout = 3 * time.Second
)

// FailoverConfig tunes a [FailoverStore].
type FailoverConfig struct {
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
	Logger           *zap.Logger
	// OnFailover is called with the operation name each time a primary
	// failure routes a call to the secondary backend.
	OnFailover func(op string)
	// OnStorageUnavailable is called when both backends failed.
	OnStorageUnavailable func(op string)
}

// FailoverStore prefers the primary backend and falls back to the secondary
// one on backend failures. A clean miss is never a failure.
type FailoverStore struct {
	primary   Store
	secondary Store
	cfg       FailoverConfig
	log       *zap.Logger
}

// NewFailoverStore composes primary and secondary.
func NewFailoverStore(primary, secondary Store, cfg FailoverConfig) *FailoverStore {
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if cfg.SecondaryTimeout <= 0 {
		cfg.SecondaryTimeout = DefaultSecondaryTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &FailoverStore{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		log:       log.Named("verification.failover"),
	}
}

// Save writes to the primary. The secondary is only written when the primary
// failed with a backend error.
func (f *FailoverStore) Save(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	perr := f.withPrimary(ctx, func(c context.Context) error {
		return f.primary.Save(c, key, value)
	})
	if perr == nil {
		return nil
	}
	if err := f.stopFailover(ctx, perr); err != nil {
		return err
	}
	f.failedOver("save", key, perr)

	serr := f.withSecondary(ctx, func(c context.Context) error {
		return f.secondary.Save(c, key, value)
	})
	if serr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return f.bothFailed("save", key, perr, serr)
}

// Find returns the primary's value when present; otherwise the secondary's.
func (f *FailoverStore) Find(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	var (
		value string
		found bool
	)
	perr := f.withPrimary(ctx, func(c context.Context) error {
		var err error
		value, found, err = f.primary.Find(c, key)
		return err
	})
	if perr == nil && found {
		return value, true, nil
	}
	if perr != nil {
		if err := f.stopFailover(ctx, perr); err != nil {
			return "", false, err
		}
		f.failedOver("find", key, perr)
	}

	serr := f.withSecondary(ctx, func(c context.Context) error {
		var err error
		value, found, err = f.secondary.Find(c, key)
		return err
	})
	if serr == nil {
		return value, found, nil
	}
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	if perr != nil {
		return "", false, f.bothFailed("find", key, perr, serr)
	}
	// The primary answered with a clean miss, so the code was most likely
	// never written to the secondary.
	f.log.Warn("secondary lookup failed after primary miss",
		zap.String("key", mask.Key(key)), zap.Error(serr))
	return "", false, nil
}

// Delete removes key from both backends. Failures on either side are logged
// and swallowed; an absent entry is the desired end state.
func (f *FailoverStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := f.withPrimary(ctx, func(c context.Context) error {
		return f.primary.Delete(c, key)
	}); err != nil {
		f.log.Warn("primary delete failed", zap.String("key", mask.Key(key)), zap.Error(err))
	}
	if err := f.withSecondary(ctx, func(c context.Context) error {
		return f.secondary.Delete(c, key)
	}); err != nil {
		f.log.Debug("secondary delete failed", zap.String("key", mask.Key(key)), zap.Error(err))
	}
	return nil
}

// ValidateAndDelete uses the primary's atomic primitive first. The secondary
// is only consulted when the primary holds no code for key or failed, so a
// code superseded on the primary never validates from the secondary.
func (f *FailoverStore) ValidateAndDelete(ctx context.Context, key, candidate string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}
	var outcome Outcome
	perr := f.withPrimary(ctx, func(c context.Context) error {
		var err error
		outcome, err = consume(c, f.primary, key, candidate)
		return err
	})
	switch {
	case perr == nil && outcome == Consumed:
		f.dropSecondary(ctx, key)
		return true, nil
	case perr == nil && outcome == Mismatch:
		return false, nil
	case perr != nil:
		if err := f.stopFailover(ctx, perr); err != nil {
			return false, err
		}
		f.failedOver("validate", key, perr)
	}

	var ok bool
	serr := f.withSecondary(ctx, func(c context.Context) error {
		var err error
		ok, err = f.secondary.ValidateAndDelete(c, key, candidate)
		return err
	})
	if serr == nil {
		return ok, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if perr != nil {
		return false, f.bothFailed("validate", key, perr, serr)
	}
	f.log.Warn("secondary validation failed after primary miss",
		zap.String("key", mask.Key(key)), zap.Error(serr))
	return false, nil
}

// dropSecondary removes a copy written to the secondary during an earlier
// primary outage. Failures are logged only.
func (f *FailoverStore) dropSecondary(ctx context.Context, key string) {
	if err := f.withSecondary(ctx, func(c context.Context) error {
		return f.secondary.Delete(c, key)
	}); err != nil {
		f.log.Debug("secondary cleanup after consume failed", zap.String("key", mask.Key(key)), zap.Error(err))
	}
}

func (f *FailoverStore) withPrimary(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, f.cfg.PrimaryTimeout)
	defer cancel()
	return fn(c)
}

func (f *FailoverStore) withSecondary(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, f.cfg.SecondaryTimeout)
	defer cancel()
	return fn(c)
}

// stopFailover returns the error to surface when a primary failure must not
// be retried on the secondary: the caller's context is done, or the error is
// not a backend failure.
func (f *FailoverStore) stopFailover(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !IsUnavailable(err) {
		return err
	}
	return nil
}

func (f *FailoverStore) failedOver(op, key string, err error) {
	f.log.Warn("primary verification store failed, using secondary",
		zap.String("op", op),
		zap.String("key", mask.Key(key)),
		zap.Error(err),
	)
	if f.cfg.OnFailover != nil {
		f.cfg.OnFailover(op)
	}
}

func (f *FailoverStore) bothFailed(op, key string, perr, serr error) error {
	f.log.Error("both verification stores failed",
		zap.String("op", op),
		zap.String("key", mask.Key(key)),
		zap.NamedError("primary", perr),
		zap.NamedError("secondary", serr),
	)
	if f.cfg.OnStorageUnavailable != nil {
		f.cfg.OnStorageUnavailable(op)
	}
	return fmt.Errorf("%w: primary: %v; secondary: %v", ErrStorageUnavailable, perr, serr)
}

package middleware

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/accountauth"
	"github.com/MrEthical07/accountauth/internal/accounts"
)

type singleAccount struct {
	account accountauth.Account
}

func (s *singleAccount) FindByEmail(_ context.Context, email string) (*accountauth.Account, error) {
	if email != s.account.Email {
		return nil, accounts.ErrNotFound
	}
	a := s.account
	return &a, nil
}

func (s *singleAccount) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return email == s.account.Email, nil
}

func (s *singleAccount) Create(context.Context, accountauth.Account) (*accountauth.Account, error) {
	return nil, accounts.ErrExists
}

func (s *singleAccount) UpdatePasswordHash(context.Context, int64, string) error {
	return nil
}

type engineEnv struct {
	engine *accountauth.Engine
	userID int64
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := accountauth.DefaultConfig()
	cfg.JWT.Secret = "k9$Qm2!vX7#pL4@wZ8^rT1&nB5*hD3(e"
	cfg.Password.BcryptCost = 4

	provider := &singleAccount{account: accountauth.Account{ID: 7, Email: "carol@example.com", Name: "Carol", Role: "USER"}}
	engine, err := accountauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})
	return &engineEnv{engine: engine, userID: provider.account.ID}
}

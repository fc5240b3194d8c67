package accountauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/accountauth/internal/accounts"
	"github.com/MrEthical07/accountauth/mail"
	"github.com/MrEthical07/accountauth/password"
)

const testSecret = "k9$Qm2!vX7#pL4@wZ8^rT1&nB5*hD3(e"

type memAccounts struct {
	mu     sync.Mutex
	byMail map[string]Account
	nextID int64
	err    error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byMail: make(map[string]Account), nextID: 1}
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.byMail[email]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return &a, nil
}

func (m *memAccounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.byMail[email]
	return ok, nil
}

func (m *memAccounts) Create(_ context.Context, a Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byMail[a.Email]; ok {
		return nil, accounts.ErrExists
	}
	a.ID = m.nextID
	m.nextID++
	a.CreatedAt = time.Now()
	m.byMail[a.Email] = a
	return &a, nil
}

func (m *memAccounts) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range m.byMail {
		if a.ID == id {
			a.PasswordHash = hash
			m.byMail[k] = a
			return nil
		}
	}
	return accounts.ErrNotFound
}

func (m *memAccounts) add(t *testing.T, email, name, role, plain string) Account {
	t.Helper()
	h, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	hash, err := h.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := m.Create(context.Background(), Account{Email: email, Name: name, Role: role, PasswordHash: hash})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return *a
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	err   error
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: make(map[string]string)}
}

func (c *captureMailer) SendCode(_ context.Context, to string, purpose mail.Purpose, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.codes[string(purpose)+"|"+to] = code
	c.sent++
	return nil
}

func (c *captureMailer) code(purpose mail.Purpose, to string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[string(purpose)+"|"+to]
}

type testEnv struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	accounts *memAccounts
	mailer   *captureMailer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.BcryptCost = 4
	cfg.Security.MinResponseTime = 0
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{mr: mr, rdb: rdb, accounts: newMemAccounts(), mailer: newCaptureMailer()}
	env.engine = env.build(t, cfg, nil)

	t.Cleanup(func() {
		env.engine.Close()
		rdb.Close()
		mr.Close()
	})
	return env
}

// build returns another engine sharing this env's backends.
func (env *testEnv) build(t *testing.T, cfg Config, now func() time.Time) *Engine {
	t.Helper()
	b := New().
		WithConfig(cfg).
		WithRedis(env.rdb).
		WithAccountProvider(env.accounts).
		WithMailer(env.mailer)
	b.now = now
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine
}

func requireReason(t *testing.T, err error, want AuthReason) {
	t.Helper()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := ReasonOf(err); got != want {
		t.Fatalf("expected reason %q, got %q (%v)", want, got, err)
	}
}

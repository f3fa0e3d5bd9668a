package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	uid          string
	name         string
	passwordHash []byte
}

// MemoryProvider is an IdentityProvider keeping bcrypt password hashes in
// memory, for development and tests.
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]account // lower-cased email -> account
	cost     int
}

// NewMemoryProvider creates an empty provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		accounts: make(map[string]account),
		cost:     bcrypt.DefaultCost,
	}
}

// NewMemoryProviderWithCost is NewMemoryProvider with a custom bcrypt cost
func NewMemoryProviderWithCost(cost int) *MemoryProvider {
	p := NewMemoryProvider()
	p.cost = cost
	return p
}

func (p *MemoryProvider) SignInWithPassword(ctx context.Context, email, password string) (string, error) {
	p.mu.RLock()
	acc, ok := p.accounts[strings.ToLower(email)]
	p.mu.RUnlock()
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return acc.uid, nil
}

func (p *MemoryProvider) CreateAccount(ctx context.Context, email, password, name string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := p.accounts[key]; exists {
		return "", ErrEmailExists
	}
	uid := uuid.NewString()
	p.accounts[key] = account{uid: uid, name: name, passwordHash: hash}
	return uid, nil
}

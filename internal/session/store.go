// Package session implements the authentication store external collaborator:
// login/logout/resolve over an opaque bearer token that, once resolved,
// identifies the client_id used as an order's owner.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is one registered user. In this corpus the credential store
// itself is out of scope — only login/logout/resolve's contract matters —
// so it is kept as a simple in-memory map rather than a database.
type Credentials struct {
	ClientID     string
	PasswordHash []byte
}

// Store is the session table: it mints and tracks bearer tokens, and binds
// each live token to the client_id it authenticates. Concurrent access is
// guarded by a single mutex — this is a small, read-heavy structure, not a
// hot path the spec asks to optimize.
type Store struct {
	logger   *zap.Logger
	secret   []byte
	users    map[string]Credentials // username -> credentials
	tokenTTL time.Duration
	mu       sync.Mutex
	byUser   map[string]string // username -> live token, for idempotent login
	live     *cache.Cache       // token -> client_id, TTL-evicted
}

// Config controls token signing and expiry.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// New creates a Store with no registered users; call Register to add them.
func New(cfg Config, logger *zap.Logger) *Store {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Store{
		logger:   logger,
		secret:   []byte(cfg.Secret),
		users:    make(map[string]Credentials),
		tokenTTL: cfg.TokenTTL,
		byUser:   make(map[string]string),
		live:     cache.New(cfg.TokenTTL, cfg.TokenTTL/2),
	}
}

// Register adds or replaces a user's credentials, hashing the password.
func (s *Store) Register(username, password, clientID string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = Credentials{ClientID: clientID, PasswordHash: hash}
	return nil
}

// Login validates credentials and returns a bearer token, or ("", false)
// on mismatch. A second login for the same user while their prior token is
// still live returns that same token — login is idempotent per user.
func (s *Store) Login(username, password string) (string, bool) {
	s.mu.Lock()
	creds, ok := s.users[username]
	if !ok {
		s.mu.Unlock()
		return "", false
	}
	if bcrypt.CompareHashAndPassword(creds.PasswordHash, []byte(password)) != nil {
		s.mu.Unlock()
		return "", false
	}

	if tok, live := s.byUser[username]; live {
		if _, found := s.live.Get(tok); found {
			s.mu.Unlock()
			return tok, true
		}
	}
	s.mu.Unlock()

	token, err := s.mint(username, creds.ClientID)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to mint session token", zap.Error(err))
		}
		return "", false
	}

	s.mu.Lock()
	s.byUser[username] = token
	s.mu.Unlock()
	s.live.Set(token, creds.ClientID, cache.DefaultExpiration)

	return token, true
}

// mint signs a JWT carrying the resolved client_id as its subject.
func (s *Store) mint(username, clientID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": clientID,
		"usr": username,
		"exp": time.Now().Add(s.tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Logout breaks both bindings for token, returning whether a session was
// actually terminated.
func (s *Store) Logout(token string) bool {
	_, found := s.live.Get(token)
	if !found {
		return false
	}
	s.live.Delete(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	for user, tok := range s.byUser {
		if tok == token {
			delete(s.byUser, user)
			break
		}
	}
	return true
}

// Resolve returns the client_id bound to token, or ("", false) if the
// token is unknown, revoked, or expired.
func (s *Store) Resolve(token string) (string, bool) {
	v, found := s.live.Get(token)
	if !found {
		return "", false
	}
	clientID, ok := v.(string)
	return clientID, ok
}

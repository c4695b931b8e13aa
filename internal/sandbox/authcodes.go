package sandbox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// AuthCodeTTL is how long an authorization code can be redeemed.
	AuthCodeTTL = 10 * time.Minute

	// AuthCodeCleanupInterval is how often expired codes are dropped.
	AuthCodeCleanupInterval = 30 * time.Second
)

var ErrInvalidGrant = errors.New("invalid authorization code")

// AuthCode is an issued authorization code waiting for the token exchange.
type AuthCode struct {
	ClientID      string
	RedirectURI   string
	CodeChallenge string
	MemberID      string
	ExpiresAt     time.Time
}

// AuthCodes keeps authorization codes in memory until redeemed or expired.
type AuthCodes struct {
	mu    sync.Mutex
	codes map[string]*AuthCode
	ttl   time.Duration
	now   func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewAuthCodes(ttl time.Duration) *AuthCodes {
	if ttl <= 0 {
		ttl = AuthCodeTTL
	}
	s := &AuthCodes{
		codes:       make(map[string]*AuthCode),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *AuthCodes) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(AuthCodeCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expire()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *AuthCodes) expire() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, c := range s.codes {
		if now.After(c.ExpiresAt) {
			delete(s.codes, code)
		}
	}
}

// Issue stores grant and returns its code.
func (s *AuthCodes) Issue(grant AuthCode) string {
	code := uuid.NewString()
	grant.ExpiresAt = s.now().Add(s.ttl)

	s.mu.Lock()
	s.codes[code] = &grant
	s.mu.Unlock()
	return code
}

// Redeem consumes code. The code is gone after the first attempt whether or
// not the PKCE verifier matched.
func (s *AuthCodes) Redeem(code, clientID, redirectURI, verifier string) (string, error) {
	s.mu.Lock()
	grant, ok := s.codes[code]
	delete(s.codes, code)
	s.mu.Unlock()

	if !ok || s.now().After(grant.ExpiresAt) {
		return "", ErrInvalidGrant
	}
	if grant.ClientID != clientID || grant.RedirectURI != redirectURI {
		return "", ErrInvalidGrant
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(challenge), []byte(grant.CodeChallenge)) != 1 {
		return "", ErrInvalidGrant
	}
	return grant.MemberID, nil
}

func (s *AuthCodes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// Close stops the background cleanup and waits for it to finish
func (s *AuthCodes) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}

package sandbox

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fjod/storefront/internal/domain"
)

// DemoMemberEmail signs in when the authorize request names nobody.
const DemoMemberEmail = "demo@example.com"

// Members is the sandbox's member directory. Members are created on first
// sign-in.
type Members struct {
	mu      sync.RWMutex
	byID    map[string]domain.Member
	byEmail map[string]string
}

func NewMembers() *Members {
	return &Members{
		byID:    make(map[string]domain.Member),
		byEmail: make(map[string]string),
	}
}

func (m *Members) SignIn(email string) domain.Member {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = DemoMemberEmail
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byEmail[email]; ok {
		return m.byID[id]
	}
	nick, _, _ := strings.Cut(email, "@")
	member := domain.Member{ID: uuid.NewString(), LoginEmail: email, Nickname: nick}
	m.byID[member.ID] = member
	m.byEmail[email] = member.ID
	return member
}

func (m *Members) Get(id string) (domain.Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.byID[id]
	return member, ok
}

package mockapi

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"clubhub-go/internal/session"

	"golang.org/x/crypto/bcrypt"
)

var (
	errEmailTaken     = errors.New("email already registered")
	errBadCredentials = errors.New("invalid email or password")
)

type account struct {
	user session.User
	hash []byte
}

// accounts is the in-memory user table.
type accounts struct {
	mu     sync.RWMutex
	byMail map[string]*account
	byID   map[string]*account
	nextID int
	cost   int
}

func newAccounts(cost int) *accounts {
	return &accounts{
		byMail: make(map[string]*account),
		byID:   make(map[string]*account),
		cost:   cost,
	}
}

func (a *accounts) create(name, email, password, role string) (session.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var hash []byte
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
		if err != nil {
			return session.User{}, err
		}
		hash = h
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byMail[email]; ok {
		return session.User{}, errEmailTaken
	}
	a.nextID++
	acc := &account{
		user: session.User{ID: "u" + strconv.Itoa(a.nextID), Name: name, Email: email, Role: role, ClubID: "club-1"},
		hash: hash,
	}
	a.byMail[email] = acc
	a.byID[acc.user.ID] = acc
	return acc.user, nil
}

// authenticate checks a password. Accounts created through Google have no
// password and never match.
func (a *accounts) authenticate(email, password string) (session.User, error) {
	a.mu.RLock()
	acc, ok := a.byMail[strings.ToLower(strings.TrimSpace(email))]
	a.mu.RUnlock()
	if !ok || acc.hash == nil {
		return session.User{}, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return session.User{}, errBadCredentials
	}
	return acc.user, nil
}

func (a *accounts) byEmail(email string) (session.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byMail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return session.User{}, false
	}
	return acc.user, true
}

func (a *accounts) get(id string) (session.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byID[id]
	if !ok {
		return session.User{}, false
	}
	return acc.user, true
}

func (a *accounts) count() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := map[string]int{}
	for _, acc := range a.byID {
		out[acc.user.Role]++
	}
	return out
}

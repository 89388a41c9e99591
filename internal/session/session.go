// Package session carries the storefront identity explicitly. A Session value
// is constructed once at sign-in and handed to every component that needs one;
// nothing resolves "current user" from ambient state.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotSignedIn  = errors.New("no user is signed in")
	ErrInvalidToken = errors.New("token carries no usable identity claims")
)

// Session identifies the cart owner for the duration of a shopping session.
// Email is the owner key for every cart and order the backend scopes to a user.
type Session struct {
	Email string
	Name  string
	Token string
}

func New(email, name string) Session {
	return Session{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name)}
}

func (s Session) SignedIn() bool { return s.Email != "" }

// FromToken builds a Session from a backend-issued bearer token. Authentication
// is enforced server-side on every request; the client only reads the display
// claims, so the token is decoded without signature verification.
func FromToken(tokenString string) (Session, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Session{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return Session{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	return Session{Email: email, Name: name, Token: tokenString}, nil
}

// Store owns the process-wide session lifecycle: sign-in at app start,
// teardown on sign-out. Everything downstream receives the Session value,
// never the Store.
type Store struct {
	mu      sync.RWMutex
	current Session
}

func NewStore() *Store { return &Store{} }

func (st *Store) SignIn(s Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = s
}

func (st *Store) SignOut() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = Session{}
}

// Current returns the signed-in session or ErrNotSignedIn.
func (st *Store) Current() (Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if !st.current.SignedIn() {
		return Session{}, ErrNotSignedIn
	}
	return st.current, nil
}

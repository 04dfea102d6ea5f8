package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/personashield/internal/store"
)

// KV keys used by the auth store.
const (
	KeyUsers       = "users"
	KeyCurrentUser = "currentUser"
)

// User is a registered account. The password is stored as entered: this
// is a local mock account store and offers no protection.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LogValue keeps passwords out of logs.
func (u User) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", u.Username))
}

// Store registers users and tracks the signed-in user.
type Store struct {
	kv     store.KV
	logger *slog.Logger

	mu      sync.Mutex
	current *User
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report storage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an auth Store over kv and restores the signed-in user.
// A missing or unreadable current user means nobody is signed in. A nil kv
// keeps accounts in memory only.
func New(ctx context.Context, kv store.KV, opts ...Option) *Store {
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	s := &Store{
		kv:     kv,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, found, err := kv.Get(ctx, KeyCurrentUser)
	switch {
	case err != nil:
		s.logger.Warn("failed to read current user", "error", err)
	case found:
		var u *User
		if err := json.Unmarshal(data, &u); err != nil {
			s.logger.Warn("discarding corrupt current user", "error", err)
		} else {
			s.current = u
		}
	}
	return s
}

// users reads the registered users. Anything other than a JSON array is
// treated as no users.
func (s *Store) users(ctx context.Context) []User {
	data, found, err := s.kv.Get(ctx, KeyUsers)
	if err != nil {
		s.logger.Warn("failed to read users", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		s.logger.Warn("discarding corrupt user list", "error", err)
		return nil
	}
	return users
}

// Signup registers a new user and signs them in.
func (s *Store) Signup(ctx context.Context, username, password string) (User, error) {
	if username == "" || password == "" {
		return User{}, ErrMissingCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.users(ctx)
	for _, u := range users {
		if u.Username == username {
			return User{}, ErrUsernameExists
		}
	}

	user := User{Username: username, Password: password}
	users = append(users, user)

	data, err := json.Marshal(users)
	if err != nil {
		return User{}, fmt.Errorf("failed to encode users: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUsers, data); err != nil {
		s.logger.Warn("failed to persist users", "error", err)
	}

	s.setCurrentLocked(ctx, user)
	return user, nil
}

// Login signs in a registered user.
func (s *Store) Login(ctx context.Context, username, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users(ctx) {
		if u.Username == username && u.Password == password {
			s.setCurrentLocked(ctx, u)
			return u, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

func (s *Store) setCurrentLocked(ctx context.Context, u User) {
	s.current = &u

	data, err := json.Marshal(u)
	if err != nil {
		s.logger.Warn("failed to encode current user", "error", err)
		return
	}
	if err := s.kv.Set(ctx, KeyCurrentUser, data); err != nil {
		s.logger.Warn("failed to persist current user", "error", err)
	}
}

// Logout signs the current user out.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := s.kv.Delete(ctx, KeyCurrentUser); err != nil {
		s.logger.Warn("failed to remove current user", "error", err)
	}
}

// Current returns the signed-in user.
func (s *Store) Current() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// ConfirmPassword checks that a password was typed the same way twice.
func ConfirmPassword(password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}

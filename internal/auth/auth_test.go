package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/personashield/internal/store"
)

func TestSignup(t *testing.T) {
	t.Parallel()

	t.Run("registers and signs in", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		kv := store.NewMemoryKV()
		s := New(ctx, kv)

		u, err := s.Signup(ctx, "alice", "secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Username != "alice" {
			t.Errorf("got %q, expected alice", u.Username)
		}
		cur, ok := s.Current()
		if !ok || cur.Username != "alice" {
			t.Error("signup should sign the user in")
		}

		data, found, _ := kv.Get(ctx, KeyUsers)
		if !found || string(data) != `[{"username":"alice","password":"secret"}]` {
			t.Errorf("unexpected users document %s", data)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s := New(ctx, store.NewMemoryKV())
		if _, err := s.Signup(ctx, "alice", "a"); err != nil {
			t.Fatal(err)
		}
		_, err := s.Signup(ctx, "alice", "b")
		if !errors.Is(err, ErrUsernameExists) {
			t.Errorf("got %v, expected ErrUsernameExists", err)
		}
		if err.Error() != "Username already exists" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		s := New(ctx, store.NewMemoryKV())
		if _, err := s.Signup(ctx, "", "x"); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("got %v, expected ErrMissingCredentials", err)
		}
	})

	t.Run("corrupt user list is treated as empty", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		kv := store.NewMemoryKV()
		_ = kv.Set(ctx, KeyUsers, []byte(`{"not":"an array"}`))
		s := New(ctx, kv)
		if _, err := s.Signup(ctx, "bob", "pw"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemoryKV()
	s := New(ctx, kv)
	if _, err := s.Signup(ctx, "alice", "secret"); err != nil {
		t.Fatal(err)
	}
	s.Logout(ctx)

	testCases := []struct {
		name     string
		username string
		password string
		err      error
	}{
		{"valid", "alice", "secret", nil},
		{"wrong password", "alice", "nope", ErrInvalidCredentials},
		{"unknown user", "bob", "secret", ErrInvalidCredentials},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Login(ctx, tc.username, tc.password)
			if !errors.Is(err, tc.err) {
				t.Errorf("got %v, expected %v", err, tc.err)
			}
		})
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemoryKV()
	s := New(ctx, kv)
	if _, err := s.Signup(ctx, "alice", "secret"); err != nil {
		t.Fatal(err)
	}

	restarted := New(ctx, kv)
	if cur, ok := restarted.Current(); !ok || cur.Username != "alice" {
		t.Error("expected the session to be restored")
	}

	restarted.Logout(ctx)
	if restarted.IsAuthenticated() {
		t.Error("expected no session after logout")
	}
	if New(ctx, kv).IsAuthenticated() {
		t.Error("logout should be persisted")
	}
}

func TestCorruptCurrentUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemoryKV()
	_ = kv.Set(ctx, KeyCurrentUser, []byte(`{broken`))
	if New(ctx, kv).IsAuthenticated() {
		t.Error("corrupt current user should mean nobody is signed in")
	}
}

func TestNilKVKeepsAccountsInMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(ctx, nil)
	if s.IsAuthenticated() {
		t.Fatal("expected nobody signed in")
	}
	if _, err := s.Signup(ctx, "alice", "secret"); err != nil {
		t.Fatal(err)
	}
	if cur, ok := s.Current(); !ok || cur.Username != "alice" {
		t.Error("expected alice to be signed in")
	}

	s.Logout(ctx)
	if s.IsAuthenticated() {
		t.Error("expected no session after logout")
	}
	if _, err := s.Login(ctx, "alice", "secret"); err != nil {
		t.Errorf("login after logout: %v", err)
	}
	if _, err := s.Signup(ctx, "alice", "other"); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("got %v, expected %v", err, ErrUsernameExists)
	}
}

func TestConfirmPassword(t *testing.T) {
	t.Parallel()

	if err := ConfirmPassword("a", "a"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ConfirmPassword("a", "b"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("got %v, expected ErrPasswordMismatch", err)
	}
}

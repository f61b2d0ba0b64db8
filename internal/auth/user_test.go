package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeUsersFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write users file: %v", err)
	}
	return path
}

func TestUserStoreHashesPlaintextOnLoad(t *testing.T) {
	path := writeUsersFile(t, `
[[users]]
username = "alice"
password = "secret123"
role = "admin"
`)

	store, err := NewUserStore(path)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	if !store.Authenticate("alice", "secret123") {
		t.Error("expected authentication to succeed with original password")
	}

	// The file was rewritten with a bcrypt hash
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read users file: %v", err)
	}
	if strings.Contains(string(data), "secret123") {
		t.Error("plaintext password still present in users file")
	}
	if !strings.Contains(string(data), "$2a$") && !strings.Contains(string(data), "$2b$") {
		t.Error("expected bcrypt hash in users file")
	}
}

func TestUserStoreAuthenticate(t *testing.T) {
	path := writeUsersFile(t, `
[[users]]
username = "bob"
password = "hunter2"
role = "user"
`)

	store, err := NewUserStore(path)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"correct credentials", "bob", "hunter2", true},
		{"wrong password", "bob", "wrong", false},
		{"unknown user", "mallory", "hunter2", false},
		{"empty password", "bob", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.Authenticate(tt.username, tt.password); got != tt.want {
				t.Errorf("Authenticate(%q, %q) = %v, want %v", tt.username, tt.password, got, tt.want)
			}
		})
	}
}

func TestUserStoreBackfillsMissingRole(t *testing.T) {
	path := writeUsersFile(t, `
[[users]]
username = "carol"
password = "pass"
`)

	store, err := NewUserStore(path)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	user := store.GetUser("carol")
	if user == nil {
		t.Fatal("expected user to exist")
	}
	if user.Role != RoleUser {
		t.Errorf("expected backfilled role %q, got %q", RoleUser, user.Role)
	}
	if user.IsAdmin() {
		t.Error("expected non-admin user")
	}
}

func TestUserStoreGetUserHidesHash(t *testing.T) {
	path := writeUsersFile(t, `
[[users]]
username = "dave"
password = "pass"
role = "admin"
`)

	store, err := NewUserStore(path)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	user := store.GetUser("dave")
	if user == nil {
		t.Fatal("expected user to exist")
	}
	if user.Password != "" {
		t.Error("expected password hash to be stripped")
	}
	if !user.IsAdmin() {
		t.Error("expected admin user")
	}

	if store.GetUser("nobody") != nil {
		t.Error("expected nil for unknown user")
	}
}

func TestUserStoreCreatesDefaultAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.toml")

	store, err := NewUserStore(path)
	if err != nil {
		t.Fatalf("failed to create user store: %v", err)
	}

	user := store.GetUser("admin")
	if user == nil {
		t.Fatal("expected default admin user")
	}
	if !user.IsAdmin() {
		t.Error("expected default user to be admin")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected users file to be created: %v", err)
	}
}

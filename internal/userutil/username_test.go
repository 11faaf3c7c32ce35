package userutil

import (
	"errors"
	"os/user"
	"testing"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "alice", want: "alice"},
		{name: "domain user", input: "DOMAIN\\user", want: "DOMAIN_user"},
		{name: "email", input: "user@domain.com", want: "user_domain.com"},
		{name: "empty", input: "", want: "unknown"},
		{name: "whitespace", input: "  ", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeUsername(tt.input); got != tt.want {
				t.Fatalf("SanitizeUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCurrentUsername(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		osUser *user.User
		osErr  error
		want   string
	}{
		{name: "env wins", env: " bob ", osUser: &user.User{Username: "os"}, want: "bob"},
		{name: "os fallback", env: "", osUser: &user.User{Username: "os"}, want: "os"},
		{name: "nothing", env: "", osErr: errors.New("no user"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := currentUserFn
			t.Cleanup(func() { currentUserFn = orig })
			currentUserFn = func() (*user.User, error) { return tt.osUser, tt.osErr }
			t.Setenv("USERNAME", tt.env)

			if got := CurrentUsername(); got != tt.want {
				t.Fatalf("CurrentUsername() = %q, want %q", got, tt.want)
			}
		})
	}
}

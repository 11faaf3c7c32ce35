// Package userutil derives per-user names for pipes and mutexes.
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var currentUserFn = user.Current

// SanitizeUsername normalizes username-like values used in pipe/mutex names.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// CurrentUsername returns USERNAME, falling back to the OS account name.
// The result may be empty.
func CurrentUsername() string {
	if name := strings.TrimSpace(os.Getenv("USERNAME")); name != "" {
		return name
	}
	if current, err := currentUserFn(); err == nil {
		return current.Username
	}
	return ""
}

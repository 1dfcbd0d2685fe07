package mocks

import (
	"github.com/taskdeck/taskdeck-api/internal/service/auth"
)

// MockPasswordVerifier implements auth.PasswordVerifier against the fake
// "mock-hash:" digests MockUserStore writes, so handler tests avoid bcrypt
// work entirely.
type MockPasswordVerifier struct {
	// CompareFn overrides the default behavior when set
	CompareFn func(hashedPassword, password string) error
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements the PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if hashedPassword != "mock-hash:"+password {
		return auth.ErrInvalidCredentials
	}
	return nil
}

package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/taskdeck-api/internal/domain"
)

func TestNewUser(t *testing.T) {
	user, err := domain.NewUser("Alice@Example.COM", "Alice", "correct horse battery")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice@example.com", user.Email, "email should be lowercased")
	assert.Equal(t, "Alice", user.DisplayName)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestNewUser_Validation(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		displayName string
		password    string
		wantErr     error
	}{
		{"empty email", "", "Alice", "correct horse battery", domain.ErrEmptyEmail},
		{"invalid email", "not-an-email", "Alice", "correct horse battery", domain.ErrInvalidEmail},
		{"empty display name", "alice@example.com", "  ", "correct horse battery", domain.ErrEmptyDisplayName},
		{"short password", "alice@example.com", "Alice", "short", domain.ErrPasswordTooShort},
		{"empty password", "alice@example.com", "Alice", "", domain.ErrEmptyPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewUser(tc.email, tc.displayName, tc.password)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUser_Validate_HashOnly(t *testing.T) {
	// Users loaded from storage have no plaintext password, only the hash.
	user, err := domain.NewUser("bob@example.com", "Bob", "correct horse battery")
	require.NoError(t, err)

	user.Password = ""
	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, user.Validate())
}

func TestUser_Profile(t *testing.T) {
	user, err := domain.NewUser("carol@example.com", "Carol", "correct horse battery")
	require.NoError(t, err)

	profile := user.Profile()
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, user.DisplayName, profile.DisplayName)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "dave@example.com", domain.NormalizeEmail("  DAVE@Example.Com "))
}

package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"doctor", RoleDoctor},
		{"Doctor", RoleDoctor},
		{" PATIENT ", RolePatient},
		{"patient", RolePatient},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
			assert.True(t, r.Valid())
		})
	}

	_, err := ParseRole("admin")
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, Role("admin").Valid())
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("book: %w", Storage("update meeting", cause))

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, Storage("noop", nil))
	assert.False(t, IsPolicy(err))
}

func TestIsPolicy(t *testing.T) {
	assert.True(t, IsPolicy(fmt.Errorf("x: %w", ErrAlreadyBooked)))
	assert.True(t, IsPolicy(ErrInvalidDuration))
	assert.False(t, IsPolicy(ErrNotFound))
	assert.False(t, IsPolicy(ErrForbidden))
}

func TestUserIdentityDropsSecrets(t *testing.T) {
	u := &User{ID: "u1", Username: "alice", PasswordHash: "h", Salt: "s", Role: RoleDoctor, ProfileID: "d1", Name: "Dr A"}
	id := u.Identity()
	assert.Equal(t, Identity{UserID: "u1", Username: "alice", Role: RoleDoctor, ProfileID: "d1", Name: "Dr A"}, id)
}

package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noteflow/internal/apperr"
)

type signUp struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Level    string `json:"level" validate:"omitempty,oneof=view edit"`
}

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     signUp
		wantMsg string
	}{
		{"valid", signUp{Email: "a@b.co", Password: "Passw0rd"}, ""},
		{"missing email", signUp{Password: "Passw0rd"}, "email is required"},
		{"weak password", signUp{Email: "a@b.co", Password: "weak"}, "password must be at least 8 characters"},
		{"bad level", signUp{Email: "a@b.co", Password: "Passw0rd", Level: "owner"}, "level must be one of [view edit]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(context.Background(), v, tt.req)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

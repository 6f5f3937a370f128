package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"noteflow/internal/apperr"
	"noteflow/internal/config"
	"noteflow/internal/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var silentLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "super-secret-jwt-key-at-least-32-chars"

func testConfig() config.Config {
	return config.Config{
		BcryptCost:         8,
		JWTSecret:          testSecret,
		JWTAlgorithm:       "HS256",
		AccessTokenMinutes: 15,
	}
}

// MockUsersRepo is a mock implementation of UsersRepo
type MockUsersRepo struct {
	mock.Mock
}

func (m *MockUsersRepo) Create(ctx context.Context, user *User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsersRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUsersRepo) FindByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func TestService_SignUp(t *testing.T) {
	tests := []struct {
		name     string
		req      SignUpRequest
		setup    func(*MockUsersRepo)
		wantErr  error
		wantName string
	}{
		{
			name: "successful signup",
			req:  SignUpRequest{Email: " Test@Example.com ", Name: "Tess", Password: "Password123"},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, ErrUserNotFound)
				repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
			},
			wantName: "Tess",
		},
		{
			name: "name defaults to the email local part",
			req:  SignUpRequest{Email: "test@example.com", Password: "Password123"},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, ErrUserNotFound)
				repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(nil)
			},
			wantName: "test",
		},
		{
			name: "duplicate email",
			req:  SignUpRequest{Email: "test@example.com", Password: "Password123"},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").
					Return(&User{ID: bson.NewObjectID(), Email: "test@example.com"}, nil)
			},
			wantErr: ErrRegistrationFailed,
		},
		{
			name: "repository duplicate error",
			req:  SignUpRequest{Email: "test@example.com", Password: "Password123"},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, ErrUserNotFound)
				repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(ErrDuplicate)
			},
			wantErr: ErrRegistrationFailed,
		},
		{
			name: "repository failure",
			req:  SignUpRequest{Email: "test@example.com", Password: "Password123"},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, ErrUserNotFound)
				repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(errors.New("db down"))
			},
			wantErr: apperr.ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUsersRepo)
			tt.setup(repo)

			service := NewService(repo, testConfig(), silentLogger)
			resp, err := service.SignUp(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "test@example.com", resp.User.Email)
				assert.Equal(t, tt.wantName, resp.User.Name)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestService_SignIn(t *testing.T) {
	password := "Password123"
	hashedPassword, err := crypto.HashPassword(password, 8)
	require.NoError(t, err)

	user := &User{ID: bson.NewObjectID(), Email: "test@example.com", PasswordHash: hashedPassword}

	tests := []struct {
		name    string
		req     SignInRequest
		setup   func(*MockUsersRepo)
		wantErr error
	}{
		{
			name: "successful signin",
			req:  SignInRequest{Email: "test@example.com", Password: password},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").Return(user, nil)
			},
		},
		{
			name: "unknown user",
			req:  SignInRequest{Email: "nonexistent@example.com", Password: password},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "nonexistent@example.com").Return(nil, ErrUserNotFound)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			req:  SignInRequest{Email: "test@example.com", Password: "WrongPassword123"},
			setup: func(repo *MockUsersRepo) {
				repo.On("FindByEmail", mock.Anything, "test@example.com").Return(user, nil)
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUsersRepo)
			tt.setup(repo)

			service := NewService(repo, testConfig(), silentLogger)
			resp, err := service.SignIn(context.Background(), tt.req)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, resp.Token)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GenerateAccessToken_RoundTrip(t *testing.T) {
	service := NewService(new(MockUsersRepo), testConfig(), silentLogger)
	user := &User{ID: bson.NewObjectID(), Email: "test@example.com", Name: "Tess"}

	token, err := service.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	id, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), id.UserID)
	assert.Equal(t, "test@example.com", id.Email)
	assert.Equal(t, "Tess", id.Name)

	_, err = ParseToken(token, "another-secret-that-is-32-chars-long!!")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestService_GenerateAccessToken_UnsupportedAlgorithm(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAlgorithm = "INVALID"
	service := NewService(new(MockUsersRepo), cfg, silentLogger)

	token, err := service.GenerateAccessToken(&User{ID: bson.NewObjectID(), Email: "a@b.co"})
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestIdentityFromClaims(t *testing.T) {
	_, err := IdentityFromClaims(jwt.MapClaims{"email": "a@b.co"})
	assert.ErrorIs(t, err, ErrInvalidTokenMissingUserID)

	_, err = IdentityFromClaims(jwt.MapClaims{"user_id": "u1"})
	assert.ErrorIs(t, err, ErrInvalidTokenMissingEmail)

	id, err := IdentityFromClaims(jwt.MapClaims{"user_id": "u1", "email": "a@b.co"})
	require.NoError(t, err)
	assert.Empty(t, id.Name)
}

func TestService_Lookup(t *testing.T) {
	repo := new(MockUsersRepo)
	uid := bson.NewObjectID()
	u := &User{ID: uid, Email: "friend@example.com", Name: "Fran"}
	repo.On("FindByEmail", mock.Anything, "friend@example.com").Return(u, nil)
	repo.On("FindByID", mock.Anything, uid).Return(u, nil)

	service := NewService(repo, testConfig(), silentLogger)

	g, err := service.LookupByEmail(context.Background(), "FRIEND@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid.Hex(), g.ID)
	assert.Equal(t, "Fran", g.Name)

	g, err = service.LookupByID(context.Background(), uid.Hex())
	require.NoError(t, err)
	assert.Equal(t, "friend@example.com", g.Email)

	_, err = service.LookupByID(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

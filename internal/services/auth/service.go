package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"noteflow/internal/apperr"
	"noteflow/internal/config"
	"noteflow/internal/services/notes"
	"noteflow/internal/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles authentication business logic
type Service struct {
	repo   UsersRepo
	config config.Config
	log    *slog.Logger
}

// NewService creates a new auth service
func NewService(repo UsersRepo, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		config: cfg,
		log:    log,
	}
}

// SignUpRequest represents a user registration request
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email" example:"test@example.com"`
	Name     string `json:"name" validate:"omitempty,max=100" example:"Ada Lovelace"`
	Password string `json:"password" validate:"required,password" example:"Password123"`
}

// SignInRequest represents a user login request
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email" example:"test@example.com"`
	Password string `json:"password" validate:"required" example:"Password123"`
}

// AuthResponse represents the response for successful authentication
type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// SignUp registers a new user
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrRegistrationFailed
	}

	hashed, err := crypto.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		s.log.Error("failed to hash password", "error", err)
		return nil, apperr.Wrap(apperr.ErrUpstream, "failed to process password", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	now := time.Now().UTC()
	user := &User{
		ID:           bson.NewObjectID(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrRegistrationFailed
		}
		s.log.Error("failed to create user", "error", err)
		return nil, apperr.Wrap(apperr.ErrUpstream, "failed to create user", err)
	}

	token, err := s.GenerateAccessToken(user)
	if err != nil {
		s.log.Error(ErrGenAccessToken.Error(), "error", err)
		return nil, ErrGenAccessToken
	}

	return &AuthResponse{User: user, Token: token}, nil
}

// SignIn authenticates a user
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.log.Info("sign-in for unknown email", "error", err)
		return nil, ErrInvalidCredentials
	}

	if err := crypto.CheckPassword(req.Password, user.PasswordHash); err != nil {
		s.log.Info("sign-in with wrong password", "user_id", user.ID.Hex())
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateAccessToken(user)
	if err != nil {
		s.log.Error(ErrGenAccessToken.Error(), "error", err)
		return nil, ErrGenAccessToken
	}

	return &AuthResponse{User: user, Token: token}, nil
}

// GenerateAccessToken signs a JWT carrying user_id, email and name.
func (s *Service) GenerateAccessToken(user *User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"name":    user.Name,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMinutes) * time.Minute).Unix(),
		"iat":     now.Unix(),
	}

	if strings.ToUpper(s.config.JWTAlgorithm) != "HS256" {
		return "", errors.New("unsupported JWT algorithm")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.EffectiveJWTSecret()))
}

// ParseToken verifies a raw bearer token. It backs the WebSocket handshake,
// which cannot send an Authorization header.
func ParseToken(raw, secret string) (*Identity, error) {
	if raw == "" {
		return nil, ErrUnauthorized(errors.New("missing token"))
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrUnauthorized(err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized(errors.New("invalid claims"))
	}
	return IdentityFromClaims(claims)
}

// IdentityFromClaims extracts the caller from verified claims.
func IdentityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ErrInvalidTokenMissingUserID
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrInvalidTokenMissingEmail
	}
	name, _ := claims["name"].(string)
	return &Identity{UserID: userID, Email: email, Name: name}, nil
}

// LookupByEmail resolves a share target by email.
func (s *Service) LookupByEmail(ctx context.Context, email string) (*notes.Grantee, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toGrantee(user), nil
}

// LookupByID resolves a share target by user id.
func (s *Service) LookupByID(ctx context.Context, id string) (*notes.Grantee, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return toGrantee(user), nil
}

func toGrantee(u *User) *notes.Grantee {
	return &notes.Grantee{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

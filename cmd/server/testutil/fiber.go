// Package testutil builds Fiber apps and requests for handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"noteflow/cmd/server/handlers/httperr"
	"noteflow/internal/config"
	"noteflow/internal/logger"
	"noteflow/internal/utils/validate"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// TestSecret signs every token in handler tests.
const TestSecret = "test-secret-that-is-at-least-32-characters"

// TestConfig is a valid in-memory configuration.
func TestConfig() config.Config {
	return config.Config{
		AppPort:                8080,
		BcryptCost:             8,
		SignInRatePerMin:       1000,
		AIRatePerMin:           1000,
		LogLevel:               "error",
		LogFormat:              "text",
		StorageDriver:          "memory",
		VectorDriver:           "memory",
		JWTSecret:              TestSecret,
		JWTAlgorithm:           "HS256",
		AccessTokenMinutes:     15,
		WSMaxSessionSec:        60,
		WSOutboxBuffer:         16,
		EmbeddingModel:         "hash",
		ProviderTimeoutSec:     5,
		ChunkSize:              1500,
		ChunkOverlap:           100,
		EmbedBatchSize:         64,
		EmbedConcurrency:       2,
		RAGTopK:                3,
		ShareLinkTTLHours:      24,
		ShareLinkMaxTTLHours:   720,
		ShareLinkSweepSchedule: "",
	}
}

// CreateTestApp creates a basic Fiber app for testing with common configuration
func CreateTestApp(t *testing.T) *fiber.App {
	t.Helper()
	_, err := logger.Init(TestConfig())
	require.NoError(t, err)

	return fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
	})
}

// CreateTestValidator creates the request validator the server uses
func CreateTestValidator() *validator.Validate {
	return validate.New()
}

// CreateTestJWT creates a JWT token for testing purposes
func CreateTestJWT(userID, email string, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"name":    "Test User",
		"exp":     now.Add(expiry).Unix(),
		"iat":     now.Unix(),
	})
	return token.SignedString(secret)
}

// CreateJSONRequest creates an HTTP request with JSON body
func CreateJSONRequest(method, url string, body any) *http.Request {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// CreateAuthenticatedRequest creates an HTTP request with Authorization header
func CreateAuthenticatedRequest(method, url string, body any, token string) *http.Request {
	req := CreateJSONRequest(method, url, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// CreateWebSocketRequest creates an HTTP request with WebSocket upgrade headers
func CreateWebSocketRequest(url string, token *string) *http.Request {
	requestURL := url
	if token != nil {
		requestURL += "?token=" + *token
	}

	req := httptest.NewRequest("GET", requestURL, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

// Envelope is the decoded response body.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Decode reads the envelope and, when out is non-nil, its data.
func Decode(t *testing.T, resp *http.Response, out any) Envelope {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

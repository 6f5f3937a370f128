package ai

import (
	"context"
	"testing"

	"noteflow/cmd/server/handlers/handlerutil"
	"noteflow/cmd/server/testutil"
	"noteflow/internal/services/rag"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) Summarize(ctx context.Context, subject, noteID string) (string, error) {
	args := m.Called(ctx, subject, noteID)
	return args.String(0), args.Error(1)
}

func (m *MockAssistant) Flashcards(ctx context.Context, subject, noteID string) ([]rag.Flashcard, error) {
	args := m.Called(ctx, subject, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rag.Flashcard), args.Error(1)
}

func (m *MockAssistant) Chat(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func setupApp(t *testing.T) (*fiber.App, *MockAssistant) {
	t.Helper()
	m := &MockAssistant{}
	app := testutil.CreateTestApp(t)
	h := NewHandlers(m, testutil.CreateTestValidator())

	grp := app.Group("/ai", func(c *fiber.Ctx) error {
		c.Locals(handlerutil.LocalUserID, "u1")
		return c.Next()
	})
	grp.Post("/summarize", h.Summarize)
	grp.Post("/flashcards", h.Flashcards)
	grp.Post("/chat", h.Chat)
	return app, m
}

func TestSummarize(t *testing.T) {
	app, m := setupApp(t)
	m.On("Summarize", mock.Anything, "u1", "n1").Return("Short summary.", nil).Once()
	m.On("Summarize", mock.Anything, "u1", "secret").Return("", rag.ErrNoteNotFound).Once()

	resp, err := app.Test(testutil.CreateJSONRequest("POST", "/ai/summarize", map[string]string{"note_id": "n1"}))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var got SummaryResponse
	testutil.Decode(t, resp, &got)
	assert.Equal(t, "Short summary.", got.Summary)

	resp, err = app.Test(testutil.CreateJSONRequest("POST", "/ai/summarize", map[string]string{"note_id": "secret"}))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(testutil.CreateJSONRequest("POST", "/ai/summarize", map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	m.AssertExpectations(t)
}

func TestFlashcards(t *testing.T) {
	app, m := setupApp(t)
	cards := []rag.Flashcard{{Term: "ATP", Definition: "Energy currency"}}
	m.On("Flashcards", mock.Anything, "u1", "n1").Return(cards, nil).Once()
	m.On("Flashcards", mock.Anything, "u1", "n2").Return(nil, rag.ErrMalformedFlashcards).Once()

	resp, err := app.Test(testutil.CreateJSONRequest("POST", "/ai/flashcards", map[string]string{"note_id": "n1"}))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var got FlashcardsResponse
	testutil.Decode(t, resp, &got)
	assert.Equal(t, cards, got.Flashcards)

	resp, err = app.Test(testutil.CreateJSONRequest("POST", "/ai/flashcards", map[string]string{"note_id": "n2"}))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	env := testutil.Decode(t, resp, nil)
	assert.False(t, env.Success)

	m.AssertExpectations(t)
}

func TestChat(t *testing.T) {
	app, m := setupApp(t)
	m.On("Chat", mock.Anything, "hello").Return("hi there", nil).Once()

	resp, err := app.Test(testutil.CreateJSONRequest("POST", "/ai/chat", map[string]string{"message": "hello"}))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var got ChatResponse
	testutil.Decode(t, resp, &got)
	assert.Equal(t, "hi there", got.Reply)

	resp, err = app.Test(testutil.CreateJSONRequest("POST", "/ai/chat", map[string]string{"message": ""}))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	m.AssertExpectations(t)
}

package ai

import (
	"context"

	"noteflow/cmd/server/handlers/handlerutil"
	"noteflow/internal/services/rag"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Assistant is the note-aware assistant.
type Assistant interface {
	Summarize(ctx context.Context, subject, noteID string) (string, error)
	Flashcards(ctx context.Context, subject, noteID string) ([]rag.Flashcard, error)
	Chat(ctx context.Context, message string) (string, error)
}

// NoteRequest names the note to work on.
type NoteRequest struct {
	NoteID string `json:"note_id" validate:"required,max=64" example:"5b0e0c5e-5f0b-4b8a-9d0c-3f1f6f1b2a10"`
}

// ChatRequest is a free-form message.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=8000" example:"Explain photosynthesis in one sentence."`
}

// SummaryResponse carries a summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// FlashcardsResponse carries generated flashcards.
type FlashcardsResponse struct {
	Flashcards []rag.Flashcard `json:"flashcards"`
}

// ChatResponse carries the model reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Handlers contains the assistant HTTP handlers
type Handlers struct {
	assist    Assistant
	validator *validator.Validate
}

// NewHandlers creates new assistant handlers
func NewHandlers(assist Assistant, validator *validator.Validate) *Handlers {
	return &Handlers{assist: assist, validator: validator}
}

// Summarize summarizes a note
// @Summary Summarize a note
// @Tags ai
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body NoteRequest true "Note to summarize"
// @Success 200 {object} handlerutil.Envelope{data=SummaryResponse}
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Failure 500 {object} httperr.E
// @Router /ai/summarize [post]
func (h *Handlers) Summarize(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}
	var req NoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Summarize"); err != nil {
		return err
	}

	summary, err := h.assist.Summarize(c.UserContext(), userID, req.NoteID)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, SummaryResponse{Summary: summary})
}

// Flashcards builds study flashcards from a note
// @Summary Generate flashcards
// @Tags ai
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body NoteRequest true "Note to use"
// @Success 200 {object} handlerutil.Envelope{data=FlashcardsResponse}
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Failure 500 {object} httperr.E
// @Router /ai/flashcards [post]
func (h *Handlers) Flashcards(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}
	var req NoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Flashcards"); err != nil {
		return err
	}

	cards, err := h.assist.Flashcards(c.UserContext(), userID, req.NoteID)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, FlashcardsResponse{Flashcards: cards})
}

// Chat is a free-form exchange with the model
// @Summary Chat
// @Tags ai
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ChatRequest true "Message"
// @Success 200 {object} handlerutil.Envelope{data=ChatResponse}
// @Failure 400 {object} httperr.E
// @Failure 500 {object} httperr.E
// @Router /ai/chat [post]
func (h *Handlers) Chat(c *fiber.Ctx) error {
	if _, err := handlerutil.UserID(c); err != nil {
		return err
	}
	var req ChatRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Chat"); err != nil {
		return err
	}

	reply, err := h.assist.Chat(c.UserContext(), req.Message)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, ChatResponse{Reply: reply})
}

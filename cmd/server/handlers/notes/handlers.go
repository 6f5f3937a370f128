package notes

import (
	"context"
	"strconv"
	"strings"

	"noteflow/cmd/server/handlers/handlerutil"
	"noteflow/internal/apperr"
	"noteflow/internal/services/notes"
	"noteflow/internal/services/rag"
	"noteflow/internal/services/sharelinks"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Service defines the interface for notes service
type Service interface {
	Create(ctx context.Context, owner string, req notes.CreateNoteRequest) (*notes.NoteResponse, error)
	Get(ctx context.Context, subject, id string) (*notes.NoteResponse, error)
	List(ctx context.Context, subject string, req notes.ListNotesRequest) (*notes.ListNotesResponse, error)
	Update(ctx context.Context, subject, id string, req notes.UpdateNoteRequest) (*notes.NoteResponse, error)
	Delete(ctx context.Context, subject, id string) error
	Share(ctx context.Context, subject, id string, req notes.ShareRequest) (*notes.NoteResponse, error)
}

// LinkService issues and redeems share links.
type LinkService interface {
	Issue(ctx context.Context, issuer, noteID string, req sharelinks.IssueRequest) (*sharelinks.IssueResponse, error)
	Redeem(ctx context.Context, who sharelinks.Redeemer, token string) (*sharelinks.RedeemResponse, error)
	List(ctx context.Context, subject, noteID string) ([]*sharelinks.Link, error)
	Revoke(ctx context.Context, subject, noteID, linkID string) error
}

// Answerer answers questions grounded in one note.
type Answerer interface {
	Answer(ctx context.Context, subject, noteID, question string, topK int) (*rag.Answer, error)
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	service     Service
	links       LinkService
	qa          Answerer
	defaultTopK int
	validator   *validator.Validate
}

// NewHandlers creates new notes handlers. defaultTopK applies when a search
// omits top_k.
func NewHandlers(service Service, links LinkService, qa Answerer, defaultTopK int, validator *validator.Validate) *Handlers {
	if defaultTopK <= 0 {
		defaultTopK = rag.DefaultTopK
	}
	return &Handlers{
		service:     service,
		links:       links,
		qa:          qa,
		defaultTopK: defaultTopK,
		validator:   validator,
	}
}

// Create handles note creation
// @Summary Create a new note
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body notes.CreateNoteRequest true "Create note request"
// @Success 201 {object} handlerutil.Envelope{data=notes.NoteResponse}
// @Failure 400 {object} httperr.E
// @Failure 401 {object} httperr.E
// @Router /notes [post]
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}

	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	resp, err := h.service.Create(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusCreated, resp)
}

// Get returns one note
// @Summary Get a note
// @Tags notes
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 200 {object} handlerutil.Envelope{data=notes.NoteResponse}
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [get]
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}
	resp, err := h.service.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, resp)
}

// List handles notes listing with pagination
// @Summary List notes the caller owns or was granted, newest first
// @Tags notes
// @Produce json
// @Security Bearer
// @Param limit query int false "Limit (default: 50, max: 100)" minimum(1) maximum(100)
// @Param cursor query string false "Cursor from the previous page"
// @Param q query string false "Case-insensitive title prefix"
// @Param scope query string false "all|owned|shared (default all)"
// @Success 200 {object} handlerutil.Envelope{data=notes.ListNotesResponse}
// @Failure 400 {object} httperr.E
// @Router /notes [get]
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}

	var req notes.ListNotesRequest
	if err := handlerutil.ParseAndValidateQuery(c, &req, h.validator, "List"); err != nil {
		return err
	}

	resp, err := h.service.List(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, resp)
}

// Update handles note updates
// @Summary Update a note
// @Tags notes
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body notes.UpdateNoteRequest true "Fields to change"
// @Success 200 {object} handlerutil.Envelope{data=notes.NoteResponse}
// @Failure 400 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [put]
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	resp, err := h.service.Update(c.UserContext(), userID, c.Params("id"), req)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, resp)
}

// Delete handles note deletion
// @Summary Delete a note
// @Tags notes
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 204
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id} [delete]
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Share changes who can see a note
// @Summary Grant or remove access
// @Tags sharing
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body notes.ShareRequest true "Grants and optional global level"
// @Success 200 {object} handlerutil.Envelope{data=notes.NoteResponse}
// @Failure 400 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/share [post]
func (h *Handlers) Share(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}

	var req notes.ShareRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Share"); err != nil {
		return err
	}

	resp, err := h.service.Share(c.UserContext(), userID, c.Params("id"), req)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, resp)
}

// IssueLink creates a share link
// @Summary Generate a share link
// @Tags sharing
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param request body sharelinks.IssueRequest true "Level and optional lifetime"
// @Success 201 {object} handlerutil.Envelope{data=sharelinks.IssueResponse}
// @Failure 400 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/generate-share-link [post]
func (h *Handlers) IssueLink(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}

	var req sharelinks.IssueRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "IssueLink"); err != nil {
		return err
	}

	resp, err := h.links.Issue(c.UserContext(), userID, c.Params("id"), req)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusCreated, resp)
}

// ListLinks lists a note's share links
// @Summary List share links
// @Tags sharing
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Success 200 {object} handlerutil.Envelope{data=[]sharelinks.Link}
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/share-links [get]
func (h *Handlers) ListLinks(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}
	links, err := h.links.List(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, links)
}

// RevokeLink disables a share link
// @Summary Revoke a share link
// @Tags sharing
// @Security Bearer
// @Param id path string true "Note ID"
// @Param linkID path string true "Link ID"
// @Success 204
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/share-links/{linkID} [delete]
func (h *Handlers) RevokeLink(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}
	if err := h.links.Revoke(c.UserContext(), userID, c.Params("id"), c.Params("linkID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AcceptLink redeems a share link token
// @Summary Accept a share link
// @Tags sharing
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body sharelinks.RedeemRequest true "Token from the link"
// @Success 200 {object} handlerutil.Envelope{data=sharelinks.RedeemResponse}
// @Failure 400 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/accept-share-link [post]
func (h *Handlers) AcceptLink(c *fiber.Ctx) error {
	id, err := handlerutil.Identity(c)
	if err != nil {
		return err
	}

	var req sharelinks.RedeemRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "AcceptLink"); err != nil {
		return err
	}

	who := sharelinks.Redeemer{ID: id.UserID, Name: id.Name}
	resp, err := h.links.Redeem(c.UserContext(), who, req.Token)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, resp)
}

// Search answers a question from the note's content
// @Summary Ask a question about a note
// @Tags rag
// @Produce json
// @Security Bearer
// @Param id path string true "Note ID"
// @Param q query string true "Question"
// @Param top_k query int false "Chunks to retrieve (default 3)"
// @Success 200 {object} handlerutil.Envelope{data=rag.Answer}
// @Failure 400 {object} httperr.E
// @Failure 403 {object} httperr.E
// @Failure 404 {object} httperr.E
// @Router /notes/{id}/search [get]
func (h *Handlers) Search(c *fiber.Ctx) error {
	userID, err := handlerutil.UserID(c)
	if err != nil {
		return err
	}

	topK := h.defaultTopK
	if raw := strings.TrimSpace(c.Query("top_k")); raw != "" {
		topK, err = strconv.Atoi(raw)
		if err != nil {
			return apperr.New(apperr.ErrInvalidArgument, "top_k must be an integer")
		}
	}

	ans, err := h.qa.Answer(c.UserContext(), userID, c.Params("id"), c.Query("q"), topK)
	if err != nil {
		return err
	}
	return handlerutil.Respond(c, fiber.StatusOK, ans)
}

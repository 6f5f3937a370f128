// Package mcpserver exposes note question answering to MCP clients over
// stdio. Every call acts as one configured user, so permission checks run
// exactly as they do for the HTTP API.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"noteflow/internal/apperr"
	"noteflow/internal/services/notes"
	"noteflow/internal/services/rag"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NoteLister lists the notes a user can see.
type NoteLister interface {
	List(ctx context.Context, subject string, req notes.ListNotesRequest) (*notes.ListNotesResponse, error)
}

// Asker answers a question from one note.
type Asker interface {
	Answer(ctx context.Context, subject, noteID, question string, topK int) (*rag.Answer, error)
}

// Summarizer summarizes one note.
type Summarizer interface {
	Summarize(ctx context.Context, subject, noteID string) (string, error)
}

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp     *server.MCPServer
	subject string
	notes   NoteLister
	qa      Asker
	assist  Summarizer
	log     *slog.Logger
}

// New registers ask_note, summarize_note and list_notes for subject.
func New(subject string, notes NoteLister, qa Asker, assist Summarizer, log *slog.Logger) *Server {
	s := &Server{subject: subject, notes: notes, qa: qa, assist: assist, log: log}

	s.mcp = server.NewMCPServer(
		"NoteFlow",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("ask_note",
		mcp.WithDescription("Answer a question using only the content of one note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Id of the note to ask")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question")),
		mcp.WithNumber("top_k", mcp.Description("How many chunks to retrieve (default 3)")),
	), s.askNote)

	s.mcp.AddTool(mcp.NewTool("summarize_note",
		mcp.WithDescription("Summarize the content of one note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Id of the note to summarize")),
	), s.summarizeNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes visible to the configured user, newest first."),
		mcp.WithString("q", mcp.Description("Optional title prefix")),
		mcp.WithString("scope", mcp.Description("all, owned or shared (default all)")),
	), s.listNotes)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) askNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := req.GetInt("top_k", rag.DefaultTopK)

	ans, err := s.qa.Answer(ctx, s.subject, noteID, question, topK)
	if err != nil {
		s.log.Info("ask_note failed", "error", err, "note_id", noteID)
		return mcp.NewToolResultError(apperr.Message(err)), nil
	}
	return mcp.NewToolResultText(ans.Text), nil
}

func (s *Server) summarizeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.assist.Summarize(ctx, s.subject, noteID)
	if err != nil {
		return mcp.NewToolResultError(apperr.Message(err)), nil
	}
	return mcp.NewToolResultText(summary), nil
}

type noteRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Owner bool   `json:"owner"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.notes.List(ctx, s.subject, notes.ListNotesRequest{
		Q:     req.GetString("q", ""),
		Scope: req.GetString("scope", ""),
		Limit: 100,
	})
	if err != nil {
		return mcp.NewToolResultError(apperr.Message(err)), nil
	}
	if len(resp.Notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}

	rows := make([]noteRow, len(resp.Notes))
	for i, n := range resp.Notes {
		rows[i] = noteRow{ID: n.ID, Title: n.Title, Owner: n.Owner == s.subject}
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal notes: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// Package docs NoteFlow API
//
// @title  NoteFlow API
// @version 0.2.0
// @description Notes with per-user permissions, share links, live updates and note-grounded answers.
// @host      localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package docs

import (
	_ "noteflow/cmd/server/handlers/handlerutil"
	_ "noteflow/cmd/server/handlers/httperr"
	_ "noteflow/internal/services/auth"
	_ "noteflow/internal/services/notes"
	_ "noteflow/internal/services/rag"
	_ "noteflow/internal/services/sharelinks"
)

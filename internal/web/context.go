package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
)

// sessionID parses the {id} route parameter and tags the request context
// with it for logging. A malformed id is reported as an unknown session.
func sessionID(r *http.Request) (uuid.UUID, *http.Request, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, r, fmt.Errorf("%w: %q", core.ErrSessionNotFound, raw)
	}
	ctx := logging.WithSession(r.Context(), id.String())
	return id, r.WithContext(ctx), nil
}

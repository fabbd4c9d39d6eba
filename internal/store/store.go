// Package store keeps uploaded workbooks between requests.
//
// A session is one workbook plus the rules and configuration it is validated
// with. The web server reads a session, validates or fixes it, and writes the
// whole session back; sheets are always replaced wholesale.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

// Session is a stored workbook.
type Session struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name,omitempty"`
	Workbook  sheets.Workbook       `json:"workbook"`
	Rules     []core.BusinessRule   `json:"rules"`
	Config    core.ValidationConfig `json:"config"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Store persists sessions. Get, Update and Delete return
// core.ErrSessionNotFound for unknown ids.
type Store interface {
	// Create assigns an id and timestamps and saves the session.
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	// Update saves s and bumps UpdatedAt.
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Purge deletes sessions last updated before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
	Close()
}

// clone deep-copies a session so callers never share sheet maps with the store.
func (s *Session) clone() *Session {
	cp := *s
	cp.Workbook = sheets.Workbook{
		Clients: s.Workbook.Clients.Clone(),
		Workers: s.Workbook.Workers.Clone(),
		Tasks:   s.Workbook.Tasks.Clone(),
	}
	cp.Rules = append([]core.BusinessRule(nil), s.Rules...)
	cp.Config.EnabledValidators = append([]string(nil), s.Config.EnabledValidators...)
	return &cp
}

// Context builds a validation context over the session.
func (s *Session) Context() *core.ValidationContext {
	return s.Workbook.Context(s.Rules, s.Config)
}

package web

// handlers_sessions.go serves stored workbooks. A session is created from an
// upload, validated and fixed in place, and exported back to xlsx.

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
	"github.com/JonMunkholm/sheetcheck/internal/store"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the small text fields.
const multipartOverhead = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sessionCreated is the response to POST /api/sessions.
type sessionCreated struct {
	ID   string         `json:"id"`
	Name string         `json:"name,omitempty"`
	Rows map[string]int `json:"rows"`
}

// handleCreateSession accepts either a multipart upload or a JSON workbook.
//
// Multipart forms carry an xlsx in "file", or one CSV per sheet in "clients",
// "workers" and "tasks". An optional "rules" field holds a YAML or JSON rule
// document.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := &store.Session{Rules: s.rules, Config: s.cfg.Engine.ValidationConfig()}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := s.readUpload(w, r, sess); err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
	} else {
		var req datasetRequest
		if err := s.decodeJSON(w, r, &req); err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		sess.Name = req.Name
		sess.Workbook = req.workbook()
		sess.Rules, sess.Config = s.runDefaults(req.Rules, req.Config)
	}

	if err := s.store.Create(r.Context(), sess); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logging.WithFields(logging.WithSession(r.Context(), sess.ID.String())).
		Info("session created",
			"name", sess.Name,
			"clients", sess.Workbook.Clients.Len(),
			"workers", sess.Workbook.Workers.Len(),
			"tasks", sess.Workbook.Tasks.Len(),
		)

	writeJSONStatus(w, http.StatusCreated, sessionCreated{
		ID:   sess.ID.String(),
		Name: sess.Name,
		Rows: map[string]int{
			string(core.SheetClients): sess.Workbook.Clients.Len(),
			string(core.SheetWorkers): sess.Workbook.Workers.Len(),
			string(core.SheetTasks):   sess.Workbook.Tasks.Len(),
		},
	})
}

// readUpload fills sess from a multipart form.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, sess *store.Session) error {
	maxBytes := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return uploadError(err)
	}
	defer r.MultipartForm.RemoveAll()

	opts := sheets.Options{MaxBytes: maxBytes}

	if raw := r.FormValue("rules"); strings.TrimSpace(raw) != "" {
		rules, err := core.DecodeRules([]byte(raw))
		if err != nil {
			return err
		}
		sess.Rules = rules
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" {
			return fmt.Errorf("%w: %q", sheets.ErrUnsupportedFileType, ext)
		}
		wb, err := sheets.LoadWorkbook(file, opts)
		if err != nil {
			return err
		}
		sess.Name = header.Filename
		sess.Workbook = wb
		return nil
	}

	readers := make(map[core.Sheet]io.Reader)
	for _, sheet := range core.Sheets {
		file, _, err := r.FormFile(string(sheet))
		if err != nil {
			continue
		}
		defer file.Close()
		readers[sheet] = file
	}
	if len(readers) == 0 {
		return ErrNoFile
	}
	wb, err := sheets.LoadCSVSet(readers, opts)
	if err != nil {
		return err
	}
	sess.Name = r.FormValue("name")
	sess.Workbook = wb
	return nil
}

// uploadError keeps size errors recognisable and marks the rest as bad input.
func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, multipart.ErrMessageTooLarge):
		return fmt.Errorf("%w: %w", sheets.ErrFileTooLarge, err)
	case errors.As(err, &maxBytes):
		return err
	}
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// loadSession resolves {id} and reads the session.
func (s *Server) loadSession(r *http.Request) (*store.Session, *http.Request, error) {
	id, r, err := sessionID(r)
	if err != nil {
		return nil, r, err
	}
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, r, err
	}
	return sess, r, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.loadSession(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, r, err := sessionID(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	logging.FromContext(r.Context()).Info("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.loadSession(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	resp, err := s.validate(r, sess.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, resp)
}

// sessionFixRequest names the issue to fix.
type sessionFixRequest struct {
	Issue *core.ValidationIssue `json:"issue"`
}

// sessionFixResponse is the fix outcome plus the revalidated workbook.
type sessionFixResponse struct {
	Fix     core.FixResult         `json:"fix"`
	Issues  []core.ValidationIssue `json:"issues"`
	Summary core.Summary           `json:"summary"`
}

// handleFixSession applies one fix, replaces the affected sheet, saves the
// session and validates it again.
func (s *Server) handleFixSession(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.loadSession(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	var req sessionFixRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if req.Issue == nil {
		err := fmt.Errorf("%w: missing issue", ErrBadRequest)
		respondError(w, r, err, statusFor(err))
		return
	}

	log := logging.WithFields(r.Context(), "validator", req.Issue.ValidatorName)
	res := s.engine.ApplyFix(*req.Issue, sess.Context())

	if res.Success && !res.Unchanged && res.ModifiedData != nil {
		sess.Workbook.Set(res.Sheet, *res.ModifiedData)
		if err := s.store.Update(r.Context(), sess); err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		log.Info("fix applied", "sheet", res.Sheet, "message", res.Message)
	} else {
		log.Info("fix not applied", "success", res.Success, "message", res.Message)
	}

	resp, err := s.validate(r, sess.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, sessionFixResponse{Fix: res, Issues: resp.Issues, Summary: resp.Summary})
}

// handleRepairSession runs the auto-fix loop and stores the final sheets.
func (s *Server) handleRepairSession(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.loadSession(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.engine.Repair(sess.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if len(res.Applied) > 0 {
		sess.Workbook = sheets.FromContext(res.Context)
		if err := s.store.Update(r.Context(), sess); err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
	}
	logging.FromContext(r.Context()).Info("repair complete",
		"passes", res.Passes,
		"applied", len(res.Applied),
		"remaining", len(res.Issues),
	)
	writeJSON(w, newRepairResponse(res))
}

// handleExportSession streams the session as an xlsx workbook.
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.loadSession(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	name := exportName(sess)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if err := sheets.WriteWorkbook(w, sess.Workbook); err != nil {
		// The body may be partly written; all that is left is to log.
		logging.FromContext(r.Context()).Error("export failed", "error", err)
	}
}

// exportName derives a download name from the session name.
func exportName(sess *store.Session) string {
	base := strings.TrimSuffix(filepath.Base(sess.Name), filepath.Ext(sess.Name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "session-" + sess.ID.String()[:8]
	}
	return base + "-checked.xlsx"
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/sheetcheck/internal/cache"
	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

// datasetRequest is the JSON form of a workbook plus run settings. Absent
// sheets are treated as empty; absent rules and config fall back to the
// server defaults.
type datasetRequest struct {
	Clients core.ParsedData        `json:"clients"`
	Workers core.ParsedData        `json:"workers"`
	Tasks   core.ParsedData        `json:"tasks"`
	Rules   []core.BusinessRule    `json:"rules"`
	Config  *core.ValidationConfig `json:"config"`
	Issue   *core.ValidationIssue  `json:"issue,omitempty"`
	Name    string                 `json:"name,omitempty"`
}

func (req datasetRequest) workbook() sheets.Workbook {
	return sheets.Workbook{Clients: req.Clients, Workers: req.Workers, Tasks: req.Tasks}
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// runDefaults fills rules and config the request left out.
func (s *Server) runDefaults(rules []core.BusinessRule, cfg *core.ValidationConfig) ([]core.BusinessRule, core.ValidationConfig) {
	if rules == nil {
		rules = s.rules
	}
	if cfg == nil {
		return rules, s.cfg.Engine.ValidationConfig()
	}
	return rules, *cfg
}

// validateResponse is a report plus whether it came from the cache.
type validateResponse struct {
	*core.Report
	Cached bool `json:"cached"`
}

// validate runs one pass, consulting the report cache first. Cache failures
// are logged and otherwise ignored.
func (s *Server) validate(r *http.Request, vctx *core.ValidationContext) (validateResponse, error) {
	log := logging.FromContext(r.Context())

	key, err := cache.Fingerprint(vctx)
	if err != nil {
		log.Warn("cannot fingerprint dataset", "error", err)
	} else if rep, ok, err := s.cache.Get(r.Context(), key); err != nil {
		log.Warn("report cache read failed", "error", err)
	} else if ok {
		log.Debug("report cache hit", "fingerprint", key[:12])
		return validateResponse{Report: rep, Cached: true}, nil
	}

	rep, err := s.engine.Validate(vctx)
	if err != nil {
		return validateResponse{}, err
	}
	log.Info("validation complete",
		"issues", rep.Summary.Total,
		"errors", rep.Summary.Errors,
		"duration_ms", rep.Duration.Milliseconds(),
	)

	if key != "" {
		if err := s.cache.Set(r.Context(), key, rep); err != nil {
			log.Warn("report cache write failed", "error", err)
		}
	}
	return validateResponse{Report: rep}, nil
}

// repairResponse is the outcome of an auto-fix loop with the final sheets.
type repairResponse struct {
	Issues   []core.ValidationIssue `json:"issues"`
	Summary  core.Summary           `json:"summary"`
	Applied  []core.AppliedFix      `json:"applied"`
	Passes   int                    `json:"passes"`
	Workbook sheets.Workbook        `json:"workbook"`
}

func newRepairResponse(res *core.RepairResult) repairResponse {
	return repairResponse{
		Issues:   res.Issues,
		Summary:  core.Summarize(res.Issues),
		Applied:  res.Applied,
		Passes:   res.Passes,
		Workbook: sheets.FromContext(res.Context),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":     "ok",
		"validators": s.engine.Registry().Len(),
		"limiter":    s.limiter.Status(),
	})
}

// validatorInfo describes one registered validator.
type validatorInfo struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Category     core.Category `json:"category"`
	Priority     int           `json:"priority"`
	Dependencies []string      `json:"dependencies"`
	Enabled      bool          `json:"enabled"`
	Fixable      bool          `json:"fixable"`
}

func (s *Server) handleListValidators(w http.ResponseWriter, r *http.Request) {
	all := core.SortedByPriority(s.engine.Registry().All())
	out := make([]validatorInfo, 0, len(all))
	for _, v := range all {
		_, fixable := v.(core.Fixer)
		deps := v.Dependencies()
		if deps == nil {
			deps = []string{}
		}
		out = append(out, validatorInfo{
			Name:         v.Name(),
			Description:  v.Description(),
			Category:     v.Category(),
			Priority:     v.Priority(),
			Dependencies: deps,
			Enabled:      v.Enabled(),
			Fixable:      fixable,
		})
	}
	writeJSON(w, out)
}

// handleValidate validates a workbook sent as JSON. With config.autoFix set
// it runs the repair loop and returns the repaired sheets as well.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req datasetRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	rules, cfg := s.runDefaults(req.Rules, req.Config)
	vctx := req.workbook().Context(rules, cfg)

	if cfg.AutoFix {
		res, err := s.engine.Repair(vctx)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		writeJSON(w, newRepairResponse(res))
		return
	}

	resp, err := s.validate(r, vctx)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, resp)
}

// handleFix applies one fix to a workbook sent as JSON.
func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	var req datasetRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if req.Issue == nil {
		err := fmt.Errorf("%w: missing issue", ErrBadRequest)
		respondError(w, r, err, statusFor(err))
		return
	}

	rules, cfg := s.runDefaults(req.Rules, req.Config)
	res := s.engine.ApplyFix(*req.Issue, req.workbook().Context(rules, cfg))
	logging.WithFields(r.Context(), "validator", req.Issue.ValidatorName).
		Info("fix requested", "success", res.Success, "message", res.Message)
	writeJSON(w, res)
}

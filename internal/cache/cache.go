// Package cache memoizes validation reports by dataset fingerprint.
//
// A validation pass is a pure function of the sheets, the rules and the run
// configuration, so two requests with the same fingerprint can share one
// report. Only the JSON form of a report is cached: issue values come back
// as plain JSON types.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// Reports stores validation reports.
type Reports interface {
	// Get returns the cached report and whether it was found.
	Get(ctx context.Context, key string) (*core.Report, bool, error)
	Set(ctx context.Context, key string, rep *core.Report) error
}

// fingerprintInput fixes the field order of the hashed document.
type fingerprintInput struct {
	Clients  core.ParsedData         `json:"clients"`
	Workers  core.ParsedData         `json:"workers"`
	Tasks    core.ParsedData         `json:"tasks"`
	Rules    []core.BusinessRule     `json:"rules"`
	Config   core.ValidationConfig   `json:"config"`
	Required map[core.Sheet][]string `json:"required"`
}

// Fingerprint hashes everything a validation pass depends on. Map keys are
// sorted by encoding/json, so equal contexts always hash equally.
func Fingerprint(vctx *core.ValidationContext) (string, error) {
	b, err := json.Marshal(fingerprintInput{
		Clients:  vctx.Clients,
		Workers:  vctx.Workers,
		Tasks:    vctx.Tasks,
		Rules:    vctx.Rules,
		Config:   vctx.Config,
		Required: vctx.RequiredHeaders,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*core.Report, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, *core.Report) error         { return nil }

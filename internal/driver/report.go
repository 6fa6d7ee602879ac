package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Report summarises one run.
type Report struct {
	RunID            uuid.UUID `json:"run_id"`
	Started          time.Time `json:"started"`
	Finished         time.Time `json:"finished"`
	Succeeded        []string  `json:"succeeded"`
	Skipped          []string  `json:"skipped"`
	Failed           []Failure `json:"failed"`
	DateFactorsError string    `json:"date_factors_error,omitempty"`
}

// Failure is an instrument left out of the output.
type Failure struct {
	Code   string `json:"code"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

func (r *Report) add(code string, o outcome, err error) {
	switch o {
	case outcomeOK:
		r.Succeeded = append(r.Succeeded, code)
	case outcomeSkipped:
		r.Skipped = append(r.Skipped, code)
	default:
		r.Failed = append(r.Failed, Failure{Code: code, Kind: Classify(err), Reason: err.Error()})
	}
}

// WriteReport writes the report as indented JSON into dir and returns the path.
func (r *Report) WriteReport(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s.json", r.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

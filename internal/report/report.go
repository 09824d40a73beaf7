// Package report defines the structured failure records and run tallies
// produced by a populator pass.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Stage denotes where in the pipeline a failure occurred.
type Stage string

// Supported failure stages.
const (
	StageFetch    Stage = "FETCH"
	StageParse    Stage = "PARSE"
	StageCompose  Stage = "COMPOSE"
	StageValidate Stage = "VALIDATE"
	StagePublish  Stage = "PUBLISH"
)

// Record captures a single non-fatal failure tied to a source URL.
type Record struct {
	URL   string `json:"url"`
	Stage Stage  `json:"stage"`
	Cause string `json:"cause"`
}

// Validate performs coarse validation on Record payloads.
func (r Record) Validate() error {
	if r.URL == "" {
		return errors.New("source url is required")
	}
	switch r.Stage {
	case StageFetch, StageParse, StageCompose, StageValidate, StagePublish:
	default:
		return fmt.Errorf("unknown stage %q", r.Stage)
	}
	return nil
}

// Report aggregates the outcome of one populator run. It is not safe for
// concurrent mutation; the driver owns it for the duration of a run.
type Report struct {
	Published int      `json:"published"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Records   []Record `json:"records,omitempty"`
}

// Fail appends a failure record and bumps the failed tally.
func (r *Report) Fail(url string, stage Stage, cause error) {
	r.Failed++
	rec := Record{URL: url, Stage: stage}
	if cause != nil {
		rec.Cause = cause.Error()
	}
	r.Records = append(r.Records, rec)
}

// Merge folds another report's tallies and records into this one.
func (r *Report) Merge(other Report) {
	r.Published += other.Published
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Records = append(r.Records, other.Records...)
}

// WriteRecords serializes the failure records as JSON lines, one record
// per line, suitable for an error log file.
func (r *Report) WriteRecords(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, rec := range r.Records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode failure record: %w", err)
		}
	}
	return nil
}

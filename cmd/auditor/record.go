package main

import (
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/ledger"
	"github.com/danielpatrickdp/biaslab/go-auditor/internal/logging"
)

// #region record-stage

// stageOutput is what a stage body reports back to the recorder.
type stageOutput struct {
	counts    logging.StageCounts
	artifacts []string
}

// runStage executes body and, when a ledger is configured, records the
// execution in stage_runs and its outcome in provenance_log. Ledger write
// failures are logged and never change the stage outcome. A body error is
// returned as a stageError.
func (a *app) runStage(snapshot logging.StageSnapshot, body func() (stageOutput, error)) error {
	var rec ledger.StageRecord
	recording := a.ledger != nil
	if recording {
		configJSON, err := logging.EncodeJSON(snapshot)
		if err == nil {
			rec, err = a.ledger.BeginStage(snapshot.RunID, snapshot.Stage, configJSON)
		}
		if err != nil {
			a.logger.Warn("ledger begin failed", "stage", snapshot.Stage, "error", err)
			recording = false
		}
	}

	out, bodyErr := body()
	if !recording {
		if bodyErr != nil {
			return &stageError{err: bodyErr}
		}
		return nil
	}

	status, decision, reason := ledger.StatusSucceeded, logging.DecisionWritten, ""
	if bodyErr != nil {
		status, decision, reason = ledger.StatusFailed, logging.DecisionAborted, bodyErr.Error()
		out.artifacts = nil
	}

	countsJSON, err := logging.EncodeJSON(out.counts)
	if err != nil {
		a.logger.Warn("ledger encode counts failed", "stage", snapshot.Stage, "error", err)
	}
	if err := a.ledger.FinishStage(rec.StageID, status, countsJSON); err != nil {
		a.logger.Warn("ledger finish failed", "stage", snapshot.Stage, "error", err)
	}
	if err := logging.LogDecision(a.ledger.DB(), logging.ProvenanceEntry{
		StageID:   rec.StageID,
		RunID:     snapshot.RunID,
		Stage:     snapshot.Stage,
		Decision:  decision,
		Reason:    reason,
		Artifacts: logging.JoinArtifacts(out.artifacts...),
	}); err != nil {
		a.logger.Warn("ledger provenance failed", "stage", snapshot.Stage, "error", err)
	}

	if bodyErr != nil {
		return &stageError{err: bodyErr}
	}
	return nil
}

// #endregion record-stage

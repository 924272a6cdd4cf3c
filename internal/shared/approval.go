package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "APPROVE"
	ApprovalReject  ApprovalAction = "REJECT"
)

// Modules whose decisions are kept in the approval history.
const (
	ApprovalModuleProforma = "proforma"
	ApprovalModuleGRV      = "grv"
)

// ApprovalLog is one approve or reject decision on a document.
type ApprovalLog struct {
	ID      int64
	Module  string
	RefID   int64
	ActorID int64
	Action  ApprovalAction
	Note    string
	At      time.Time
}

// NewDecision builds the history entry for a reviewer's verdict on a document.
func NewDecision(module string, refID int64, actor Principal, approved bool, note string, at time.Time) ApprovalLog {
	action := ApprovalReject
	if approved {
		action = ApprovalApprove
	}
	return ApprovalLog{Module: module, RefID: refID, ActorID: actor.ID, Action: action, Note: note, At: at}
}

// Validate reports the first missing field.
func (l ApprovalLog) Validate() error {
	switch {
	case l.Module == "":
		return errors.New("approval module required")
	case l.RefID == 0:
		return errors.New("approval ref id required")
	case l.Action != ApprovalApprove && l.Action != ApprovalReject:
		return errors.New("approval action must be APPROVE or REJECT")
	}
	return nil
}

// ApprovalRecorder appends decisions to the approvals table.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

// Record writes one decision. A zero At defaults to the database clock.
func (r *ApprovalRecorder) Record(ctx context.Context, log ApprovalLog) error {
	if r == nil || r.pool == nil {
		return errors.New("approval recorder not initialised")
	}
	if err := log.Validate(); err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, NULLIF($3::bigint, 0), $4, $5, COALESCE($6, NOW()))`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, at)
	if err != nil && r.logger != nil {
		r.logger.Error("record approval", slog.String("module", log.Module), slog.Int64("ref_id", log.RefID), slog.Any("error", err))
	}
	return err
}

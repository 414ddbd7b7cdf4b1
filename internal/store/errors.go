package store

import (
	"errors"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// Stage names the step of a store operation that failed.
type Stage string

const (
	StageNotOpen Stage = "not_open"
	StageOpen    Stage = "open"
	StagePrepare Stage = "prepare"
	StageInsert  Stage = "insert"
	StageExec    Stage = "exec"
)

var stageCodes = map[Stage]string{
	StageNotOpen: verrors.ErrCodeStoreNotOpen,
	StageOpen:    verrors.ErrCodeStoreOpenFailed,
	StagePrepare: verrors.ErrCodeStorePrepareFailed,
	StageInsert:  verrors.ErrCodeStoreInsertFailed,
	StageExec:    verrors.ErrCodeStoreExecFailed,
}

// Sentinels for errors.Is.
var (
	ErrNotOpen       = verrors.Sentinel(verrors.ErrCodeStoreNotOpen)
	ErrOpenFailed    = verrors.Sentinel(verrors.ErrCodeStoreOpenFailed)
	ErrPrepareFailed = verrors.Sentinel(verrors.ErrCodeStorePrepareFailed)
	ErrInsertFailed  = verrors.Sentinel(verrors.ErrCodeStoreInsertFailed)
	ErrExecFailed    = verrors.Sentinel(verrors.ErrCodeStoreExecFailed)
	ErrLocked        = verrors.Sentinel(verrors.ErrCodeStoreLocked)

	// ErrChunkNotFound is returned by ChunkDetail for an unknown ID.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrReadOnly is the cause of mutations on a read-only store.
	ErrReadOnly = errors.New("index is open read-only")
)

func stageError(stage Stage, op string, cause error) error {
	return verrors.New(stageCodes[stage], op, cause).WithDetail("stage", string(stage))
}

func errNotOpen() error {
	return verrors.New(verrors.ErrCodeStoreNotOpen, "index store is not open", nil).
		WithDetail("stage", string(StageNotOpen))
}

// StageOf reports which store stage produced err, or "" if none did.
func StageOf(err error) Stage {
	for stage, code := range stageCodes {
		if verrors.HasCode(err, code) {
			return stage
		}
	}
	return ""
}

package runtime

import (
	"errors"
	"time"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// CustomError is implemented by program errors that carry a numeric code
// reported back to the submitter.
type CustomError interface {
	error
	Code() uint32
}

// Result represents the outcome of one invocation.
type Result struct {
	// Success is true if the program returned without error and its account
	// changes were committed.
	Success bool

	// Err is the reason the invocation failed.
	Err error

	// CustomCode is the program's custom error code, valid when HasCustomCode
	// is set.
	CustomCode    uint32
	HasCustomCode bool

	// Logs contains the invocation log, program messages included.
	Logs []string

	// Committed lists the accounts written back to the store.
	Committed []types.Pubkey

	// Duration is the wall time spent in the program.
	Duration time.Duration
}

func (r *Result) fail(err error) {
	r.Success = false
	r.Err = err

	var ce CustomError
	if errors.As(err, &ce) {
		r.CustomCode = ce.Code()
		r.HasCustomCode = true
	}
}

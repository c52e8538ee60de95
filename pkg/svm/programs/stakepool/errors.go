package stakepool

import (
	"errors"
	"fmt"
)

// StakingError is a custom program error. Its numeric value is the code the
// host reports back to the submitter.
type StakingError uint32

// Stake Pool program errors, numbered in declaration order.
const (
	// ErrInvalidInstruction indicates the instruction data is invalid or
	// names an instruction with no handler.
	ErrInvalidInstruction StakingError = iota

	// ErrInvalidSigner indicates a required signer is missing.
	ErrInvalidSigner

	// ErrInvalidOwner indicates the storage account is not owned by the program.
	ErrInvalidOwner

	// ErrAccountInitialized indicates the pool has already been initialized.
	ErrAccountInitialized
)

var stakingErrorMessages = [...]string{
	ErrInvalidInstruction: "invalid instruction",
	ErrInvalidSigner:      "invalid signer",
	ErrInvalidOwner:       "invalid owner",
	ErrAccountInitialized: "account already initialized",
}

// Error implements the error interface.
func (e StakingError) Error() string {
	if int(e) < len(stakingErrorMessages) {
		return stakingErrorMessages[e]
	}
	return fmt.Sprintf("custom program error: %#x", uint32(e))
}

// Code returns the custom error code.
func (e StakingError) Code() uint32 {
	return uint32(e)
}

// ErrInvalidAccountData indicates the storage account data cannot hold or
// does not contain a valid pool record. It is a runtime-level failure, not
// a custom program error.
var ErrInvalidAccountData = errors.New("invalid account data")

// CustomErrorCode extracts the custom program error code carried by err.
func CustomErrorCode(err error) (uint32, bool) {
	var se StakingError
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

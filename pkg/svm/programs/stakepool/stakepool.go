// Package stakepool implements the X1 Stake Pool program.
//
// The program keeps one pool record in a storage account it owns:
//   - Initialize sets the pool authority and reward rate, exactly once
//   - CreateUser, Stake, Unstake and Claim are part of the wire format
//     but have no handler yet and fail with ErrInvalidInstruction
//
// Every instruction validates its accounts first, then the pool lifecycle,
// and only then overwrites the storage account's data.
package stakepool

import (
	"fmt"

	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// StakePoolProgram implements the Stake Pool program.
type StakePoolProgram struct {
	// ProgramID is the identity the program is deployed under
	ProgramID types.Pubkey
}

// New creates a new StakePoolProgram deployed under programID.
func New(programID types.Pubkey) *StakePoolProgram {
	return &StakePoolProgram{
		ProgramID: programID,
	}
}

// Execute executes a Stake Pool instruction.
// The instruction format is:
//   - First byte: instruction discriminator
//   - Remaining bytes: fixed-size little-endian payload of the variant
func (p *StakePoolProgram) Execute(ctx *syscall.ExecutionContext, instruction []byte) error {
	inst, err := DecodeInstruction(instruction)
	if err != nil {
		return err
	}

	switch inst := inst.(type) {
	case *InitializeInstruction:
		ctx.Log("Initialize pool")
		return handleInitialize(ctx, inst)

	default:
		return fmt.Errorf("%w: %s is not implemented", ErrInvalidInstruction, inst.Name())
	}
}

// GetProgramID returns the program's public key.
func (p *StakePoolProgram) GetProgramID() types.Pubkey {
	return p.ProgramID
}

// Process is the program entrypoint: it runs one instruction for the program
// deployed as programID against the given accounts.
func Process(programID types.Pubkey, accounts []*syscall.AccountInfo, instruction []byte) error {
	ctx := syscall.NewExecutionContext(programID, accounts, instruction)
	return New(programID).Execute(ctx, instruction)
}

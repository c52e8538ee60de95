// Package syscall provides the execution context a program sees while it
// processes one instruction: its own identity, the ordered account list and
// the program log.
package syscall

import (
	"errors"
	"fmt"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Context errors
var (
	ErrInvalidAccountIndex  = errors.New("invalid account index")
	ErrNotEnoughAccountKeys = errors.New("not enough account keys")
	ErrMaxLogsExceeded      = errors.New("maximum log entries exceeded")
	ErrLogTooLong           = errors.New("log message too long")
)

// Limits for execution
const (
	MaxLogMessages      = 64
	MaxLogMessageLength = 10000
	MaxInstructionData  = 1232
)

// AccountInfo represents account information available to a program.
type AccountInfo struct {
	Pubkey     types.Pubkey
	Lamports   *uint64 // Pointer allows modification detection
	Data       []byte
	Owner      types.Pubkey
	Executable bool
	RentEpoch  uint64
	IsSigner   bool
	IsWritable bool
}

// Clone creates a deep copy of AccountInfo.
func (a *AccountInfo) Clone() *AccountInfo {
	if a == nil {
		return nil
	}
	var lamports uint64
	if a.Lamports != nil {
		lamports = *a.Lamports
	}
	clone := &AccountInfo{
		Pubkey:     a.Pubkey,
		Lamports:   &lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
		RentEpoch:  a.RentEpoch,
		IsSigner:   a.IsSigner,
		IsWritable: a.IsWritable,
	}
	if a.Data != nil {
		clone.Data = make([]byte, len(a.Data))
		copy(clone.Data, a.Data)
	}
	return clone
}

// ExecutionContext holds everything the host hands a program for one
// invocation. It is owned by that invocation and is not safe for
// concurrent use.
type ExecutionContext struct {
	// Program being executed
	ProgramID types.Pubkey

	// Accounts available to the instruction, in instruction order
	Accounts []*AccountInfo

	// Instruction data
	InstructionData []byte

	logs []string
}

// NewExecutionContext creates a new execution context.
func NewExecutionContext(programID types.Pubkey, accounts []*AccountInfo, instructionData []byte) *ExecutionContext {
	return &ExecutionContext{
		ProgramID:       programID,
		Accounts:        accounts,
		InstructionData: instructionData,
		logs:            make([]string, 0, 8),
	}
}

// AddLog adds a log message.
func (ctx *ExecutionContext) AddLog(message string) error {
	if len(ctx.logs) >= MaxLogMessages {
		return ErrMaxLogsExceeded
	}
	if len(message) > MaxLogMessageLength {
		return ErrLogTooLong
	}
	ctx.logs = append(ctx.logs, message)
	return nil
}

// Log adds a "Program log:" message. Messages past the log limits are dropped.
func (ctx *ExecutionContext) Log(format string, args ...any) {
	_ = ctx.AddLog("Program log: " + fmt.Sprintf(format, args...))
}

// GetLogs returns all log messages.
func (ctx *ExecutionContext) GetLogs() []string {
	logs := make([]string, len(ctx.logs))
	copy(logs, ctx.logs)
	return logs
}

// GetAccountByIndex returns an account by index.
func (ctx *ExecutionContext) GetAccountByIndex(index int) (*AccountInfo, error) {
	if index < 0 || index >= len(ctx.Accounts) {
		return nil, fmt.Errorf("%w: %w: %d", ErrNotEnoughAccountKeys, ErrInvalidAccountIndex, index)
	}
	return ctx.Accounts[index], nil
}

// AccountCount returns the number of accounts.
func (ctx *ExecutionContext) AccountCount() int {
	return len(ctx.Accounts)
}

// AccountIter hands out the context's accounts in instruction order.
type AccountIter struct {
	ctx  *ExecutionContext
	next int
}

// Iter returns an iterator positioned at the first account.
func (ctx *ExecutionContext) Iter() *AccountIter {
	return &AccountIter{ctx: ctx}
}

// Next returns the next account, or ErrNotEnoughAccountKeys once the list
// is exhausted.
func (it *AccountIter) Next() (*AccountInfo, error) {
	acc, err := it.ctx.GetAccountByIndex(it.next)
	if err != nil {
		return nil, err
	}
	it.next++
	return acc, nil
}

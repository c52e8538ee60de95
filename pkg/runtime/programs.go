package runtime

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// ErrProgramNotFound indicates the program is not registered.
var ErrProgramNotFound = errors.New("program not found")

// Program defines the interface for program execution.
type Program interface {
	// Execute runs one instruction against the accounts in ctx.
	Execute(ctx *syscall.ExecutionContext, instruction []byte) error
}

// ProgramFunc is a function adapter for Program.
type ProgramFunc func(ctx *syscall.ExecutionContext, instruction []byte) error

// Execute implements Program.
func (f ProgramFunc) Execute(ctx *syscall.ExecutionContext, instruction []byte) error {
	return f(ctx, instruction)
}

// ProgramRegistry manages the mapping of program IDs to their programs.
type ProgramRegistry struct {
	mu       sync.RWMutex
	programs map[types.Pubkey]Program
	names    map[types.Pubkey]string
}

// NewProgramRegistry creates a new program registry.
func NewProgramRegistry() *ProgramRegistry {
	return &ProgramRegistry{
		programs: make(map[types.Pubkey]Program),
		names:    make(map[types.Pubkey]string),
	}
}

// RegisterProgram registers a program under id, replacing any previous one.
func (r *ProgramRegistry) RegisterProgram(id types.Pubkey, name string, program Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = program
	r.names[id] = name
}

// GetProgram returns the program registered under id.
func (r *ProgramRegistry) GetProgram(id types.Pubkey) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	program, ok := r.programs[id]
	return program, ok
}

// GetProgramName returns the name for the given program ID.
func (r *ProgramRegistry) GetProgramName(id types.Pubkey) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// UnregisterProgram removes a program from the registry.
func (r *ProgramRegistry) UnregisterProgram(id types.Pubkey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.programs, id)
	delete(r.names, id)
}

// ListPrograms returns all registered program IDs in byte order.
func (r *ProgramRegistry) ListPrograms() []types.Pubkey {
	r.mu.RLock()
	ids := make([]types.Pubkey, 0, len(r.programs))
	for id := range r.programs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Count returns the number of registered programs.
func (r *ProgramRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.programs)
}

// Package runtime runs programs against the account store: it loads the
// accounts an instruction names, hands them to the program and commits the
// writable ones back only when the program succeeds.
package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortiblox/x1-stakepool/pkg/accounts"
	"github.com/fortiblox/x1-stakepool/pkg/metrics"
	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Runtime errors
var (
	// ErrReadOnlyModified indicates a program changed an account it was not
	// allowed to write.
	ErrReadOnlyModified = errors.New("instruction modified data of a read-only account")

	// ErrAccountExists indicates CreateAccount found an existing account.
	ErrAccountExists = errors.New("account already exists")

	// ErrInstructionDataTooLarge indicates the instruction data exceeds
	// syscall.MaxInstructionData.
	ErrInstructionDataTooLarge = errors.New("instruction data too large")
)

// Runtime handles instruction execution against an account store.
type Runtime struct {
	mu       sync.Mutex
	accounts accounts.AccountsDB
	registry *ProgramRegistry
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for invocation outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics the runtime reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// New creates a runtime over db with the programs in registry.
func New(db accounts.AccountsDB, registry *ProgramRegistry, opts ...Option) *Runtime {
	r := &Runtime{
		accounts: db,
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New(nil)
	}
	return r
}

// CreateAccount stores a new account with a zeroed data buffer of size bytes.
func (r *Runtime) CreateAccount(pubkey, owner types.Pubkey, size int, lamports types.Lamports) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accounts.HasAccount(pubkey) {
		return fmt.Errorf("%w: %s", ErrAccountExists, pubkey)
	}
	if err := r.accounts.SetAccount(pubkey, types.NewAccount(lamports, owner, size)); err != nil {
		return err
	}

	r.logger.Debug("account created",
		zap.Stringer("pubkey", pubkey),
		zap.Stringer("owner", owner),
		zap.Int("size", size),
	)
	return nil
}

// GetAccount returns the stored account, or nil if it does not exist.
func (r *Runtime) GetAccount(pubkey types.Pubkey) (*types.Account, error) {
	return r.accounts.GetAccount(pubkey)
}

// Invoke executes a single instruction. Program failures are reported in the
// Result; the returned error is set only when the account store fails.
func (r *Runtime) Invoke(ix types.Instruction) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &Result{
		Logs: make([]string, 0),
	}
	invokeLog := fmt.Sprintf("Program %s invoke [1]", ix.ProgramID)
	result.Logs = append(result.Logs, invokeLog)

	program, ok := r.registry.GetProgram(ix.ProgramID)
	if !ok {
		return r.finish(ix, result, fmt.Errorf("%w: %s", ErrProgramNotFound, ix.ProgramID), 0), nil
	}
	if len(ix.Data) > syscall.MaxInstructionData {
		return r.finish(ix, result, fmt.Errorf("%w: %d bytes", ErrInstructionDataTooLarge, len(ix.Data)), 0), nil
	}

	originals, infos, err := r.loadAccounts(ix.Accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	ctx := syscall.NewExecutionContext(ix.ProgramID, infos, ix.Data)

	start := time.Now()
	execErr := program.Execute(ctx, ix.Data)
	elapsed := time.Since(start)

	result.Logs = append(result.Logs, ctx.GetLogs()...)

	if execErr == nil {
		execErr = checkReadOnly(ix.Accounts, originals, infos)
	}
	if execErr != nil {
		return r.finish(ix, result, execErr, elapsed), nil
	}

	changed := collectWritable(ix.Accounts, originals, infos)
	if len(changed) > 0 {
		if err := r.accounts.CommitAccounts(changed); err != nil {
			return nil, fmt.Errorf("failed to commit accounts: %w", err)
		}
		r.metrics.AccountsCommitted.Add(float64(len(changed)))
		for _, meta := range ix.Accounts {
			if _, ok := changed[meta.Pubkey]; ok && !containsPubkey(result.Committed, meta.Pubkey) {
				result.Committed = append(result.Committed, meta.Pubkey)
			}
		}
	}

	return r.finish(ix, result, nil, elapsed), nil
}

// finish records the outcome in result, the log and metrics.
func (r *Runtime) finish(ix types.Instruction, result *Result, err error, elapsed time.Duration) *Result {
	result.Duration = elapsed

	if err != nil {
		result.fail(err)
		result.Logs = append(result.Logs, fmt.Sprintf("Program %s failed: %v", ix.ProgramID, err))
	} else {
		result.Success = true
		result.Logs = append(result.Logs, fmt.Sprintf("Program %s success", ix.ProgramID))
	}

	r.metrics.ObserveInvocation(result.Success, elapsed)

	fields := []zap.Field{
		zap.Stringer("program", ix.ProgramID),
		zap.Int("accounts", len(ix.Accounts)),
		zap.Duration("duration", elapsed),
		zap.Bool("success", result.Success),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		if result.HasCustomCode {
			fields = append(fields, zap.Uint32("custom_code", result.CustomCode))
		}
		r.logger.Info("invocation failed", fields...)
	} else {
		r.logger.Debug("invocation succeeded", fields...)
	}

	return result
}

// loadAccounts loads every account named by metas. Missing accounts are
// presented as empty system-owned accounts. Repeated pubkeys share one data
// buffer and balance. The returned originals are untouched copies used to
// detect changes.
func (r *Runtime) loadAccounts(metas []types.AccountMeta) (map[types.Pubkey]*types.Account, []*syscall.AccountInfo, error) {
	originals := make(map[types.Pubkey]*types.Account, len(metas))
	shared := make(map[types.Pubkey]*syscall.AccountInfo, len(metas))
	infos := make([]*syscall.AccountInfo, len(metas))

	for i, meta := range metas {
		if first, ok := shared[meta.Pubkey]; ok {
			alias := *first
			alias.IsSigner = meta.IsSigner
			alias.IsWritable = meta.IsWritable
			infos[i] = &alias
			continue
		}

		account, err := r.accounts.GetAccount(meta.Pubkey)
		if err != nil {
			return nil, nil, err
		}
		if account == nil {
			account = &types.Account{
				Owner: types.SystemProgramID,
			}
		}
		originals[meta.Pubkey] = account

		lamports := uint64(account.Lamports)
		info := &syscall.AccountInfo{
			Pubkey:     meta.Pubkey,
			Lamports:   &lamports,
			Owner:      account.Owner,
			Executable: account.Executable,
			RentEpoch:  uint64(account.RentEpoch),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
		if account.Data != nil {
			info.Data = make([]byte, len(account.Data))
			copy(info.Data, account.Data)
		}

		shared[meta.Pubkey] = info
		infos[i] = info
	}

	return originals, infos, nil
}

// checkReadOnly fails if an account that no meta marks writable was changed.
func checkReadOnly(metas []types.AccountMeta, originals map[types.Pubkey]*types.Account, infos []*syscall.AccountInfo) error {
	writable := writableSet(metas)
	for i, meta := range metas {
		if writable[meta.Pubkey] {
			continue
		}
		if accountChanged(originals[meta.Pubkey], infos[i]) {
			return fmt.Errorf("%w: %s", ErrReadOnlyModified, meta.Pubkey)
		}
	}
	return nil
}

// collectWritable returns the changed writable accounts, keyed by pubkey.
func collectWritable(metas []types.AccountMeta, originals map[types.Pubkey]*types.Account, infos []*syscall.AccountInfo) map[types.Pubkey]*types.Account {
	changed := make(map[types.Pubkey]*types.Account)
	for i, meta := range metas {
		if !meta.IsWritable {
			continue
		}
		if _, done := changed[meta.Pubkey]; done {
			continue
		}
		info := infos[i]
		if !accountChanged(originals[meta.Pubkey], info) {
			continue
		}
		changed[meta.Pubkey] = &types.Account{
			Lamports:   types.Lamports(*info.Lamports),
			Data:       info.Data,
			Owner:      info.Owner,
			Executable: info.Executable,
			RentEpoch:  types.Epoch(info.RentEpoch),
		}
	}
	return changed
}

func writableSet(metas []types.AccountMeta) map[types.Pubkey]bool {
	set := make(map[types.Pubkey]bool, len(metas))
	for _, meta := range metas {
		if meta.IsWritable {
			set[meta.Pubkey] = true
		}
	}
	return set
}

func accountChanged(original *types.Account, info *syscall.AccountInfo) bool {
	return uint64(original.Lamports) != *info.Lamports ||
		original.Owner != info.Owner ||
		original.Executable != info.Executable ||
		!bytes.Equal(original.Data, info.Data)
}

func containsPubkey(list []types.Pubkey, pubkey types.Pubkey) bool {
	for _, pk := range list {
		if pk == pubkey {
			return true
		}
	}
	return false
}

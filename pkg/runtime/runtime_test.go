package runtime

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fortiblox/x1-stakepool/pkg/accounts"
	"github.com/fortiblox/x1-stakepool/pkg/metrics"
	"github.com/fortiblox/x1-stakepool/pkg/svm/programs/stakepool"
	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

var testProgramID = types.PubkeyFromSeed("test/stakepool")

type testEnv struct {
	rt       *Runtime
	db       *accounts.MemoryDB
	registry *ProgramRegistry
	reg      *prometheus.Registry
	m        *metrics.Metrics
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       accounts.NewMemoryDB(),
		registry: NewProgramRegistry(),
		reg:      prometheus.NewRegistry(),
	}
	env.m = metrics.New(env.reg)
	env.registry.RegisterProgram(testProgramID, "stakepool", stakepool.New(testProgramID))

	opts = append([]Option{WithMetrics(env.m)}, opts...)
	env.rt = New(env.db, env.registry, opts...)
	return env
}

func (env *testEnv) createStorage(t *testing.T, pubkey, owner types.Pubkey, size int) {
	t.Helper()
	require.NoError(t, env.rt.CreateAccount(pubkey, owner, size, types.RentExemptMinimum(uint64(size))))
}

func (env *testEnv) pool(t *testing.T, storage types.Pubkey) stakepool.PoolStorageAccount {
	t.Helper()
	account, err := env.rt.GetAccount(storage)
	require.NoError(t, err)
	require.NotNil(t, account)

	var pool stakepool.PoolStorageAccount
	require.NoError(t, pool.Decode(account.Data))
	return pool
}

func TestInvoke_InitializeFreshPool(t *testing.T) {
	env := newTestEnv(t)
	authority := types.PubkeyFromSeed("A")
	storage := types.PubkeyFromSeed("S")
	env.createStorage(t, storage, testProgramID, stakepool.PoolStorageAccountSize)

	result, err := env.rt.Invoke(stakepool.NewInitializeInstruction(testProgramID, authority, storage, 500))
	require.NoError(t, err)
	require.True(t, result.Success, "err: %v", result.Err)
	assert.NoError(t, result.Err)
	assert.False(t, result.HasCustomCode)
	assert.Equal(t, []types.Pubkey{storage}, result.Committed)

	assert.Equal(t, stakepool.PoolStorageAccount{
		PoolAuthority:   authority,
		RewardsPerToken: 500,
		IsInitialized:   true,
	}, env.pool(t, storage))

	require.GreaterOrEqual(t, len(result.Logs), 4)
	assert.Equal(t, "Program "+testProgramID.String()+" invoke [1]", result.Logs[0])
	assert.Equal(t, "Program log: Initialize pool", result.Logs[1])
	assert.Contains(t, result.Logs[2], "Staking pool is initialized")
	assert.Equal(t, "Program "+testProgramID.String()+" success", result.Logs[len(result.Logs)-1])

	// The authority account was never stored.
	assert.False(t, env.db.HasAccount(authority))
}

func TestInvoke_ReinitializeFails(t *testing.T) {
	env := newTestEnv(t)
	storage := types.PubkeyFromSeed("S")
	env.createStorage(t, storage, testProgramID, stakepool.PoolStorageAccountSize)

	first, err := env.rt.Invoke(stakepool.NewInitializeInstruction(testProgramID, types.PubkeyFromSeed("A"), storage, 500))
	require.NoError(t, err)
	require.True(t, first.Success)
	before := env.pool(t, storage)

	second, err := env.rt.Invoke(stakepool.NewInitializeInstruction(testProgramID, types.PubkeyFromSeed("B"), storage, 999))
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.ErrorIs(t, second.Err, stakepool.ErrAccountInitialized)
	assert.True(t, second.HasCustomCode)
	assert.Equal(t, uint32(3), second.CustomCode)
	assert.Empty(t, second.Committed)

	assert.Equal(t, before, env.pool(t, storage))
}

func TestInvoke_ValidationFailures(t *testing.T) {
	authority := types.PubkeyFromSeed("A")
	storage := types.PubkeyFromSeed("S")

	tests := []struct {
		name    string
		owner   types.Pubkey
		ix      func() types.Instruction
		wantErr error
		code    uint32
	}{
		{
			name:  "authority did not sign",
			owner: testProgramID,
			ix: func() types.Instruction {
				ix := stakepool.NewInitializeInstruction(testProgramID, authority, storage, 500)
				ix.Accounts[0].IsSigner = false
				return ix
			},
			wantErr: stakepool.ErrInvalidSigner,
			code:    1,
		},
		{
			name:  "storage owned by another program",
			owner: types.PubkeyFromSeed("other program"),
			ix: func() types.Instruction {
				return stakepool.NewInitializeInstruction(testProgramID, authority, storage, 500)
			},
			wantErr: stakepool.ErrInvalidOwner,
			code:    2,
		},
		{
			name:  "unimplemented stake",
			owner: testProgramID,
			ix: func() types.Instruction {
				return stakepool.NewStakeInstruction(testProgramID, authority, storage, 10)
			},
			wantErr: stakepool.ErrInvalidInstruction,
			code:    0,
		},
		{
			name:  "garbage data",
			owner: testProgramID,
			ix: func() types.Instruction {
				ix := stakepool.NewClaimInstruction(testProgramID, authority, storage)
				ix.Data = []byte{0x09}
				return ix
			},
			wantErr: stakepool.ErrInvalidInstruction,
			code:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.createStorage(t, storage, tt.owner, stakepool.PoolStorageAccountSize)

			result, err := env.rt.Invoke(tt.ix())
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.ErrorIs(t, result.Err, tt.wantErr)
			assert.True(t, result.HasCustomCode)
			assert.Equal(t, tt.code, result.CustomCode)

			account, err := env.rt.GetAccount(storage)
			require.NoError(t, err)
			assert.Equal(t, make([]byte, stakepool.PoolStorageAccountSize), account.Data)
		})
	}
}

func TestInvoke_MissingStorageIsNotOwned(t *testing.T) {
	env := newTestEnv(t)
	storage := types.PubkeyFromSeed("never created")

	result, err := env.rt.Invoke(stakepool.NewInitializeInstruction(testProgramID, types.PubkeyFromSeed("A"), storage, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, stakepool.ErrInvalidOwner)
	assert.False(t, env.db.HasAccount(storage))
}

func TestInvoke_ReadOnlyStorageRejected(t *testing.T) {
	env := newTestEnv(t)
	storage := types.PubkeyFromSeed("S")
	env.createStorage(t, storage, testProgramID, stakepool.PoolStorageAccountSize)

	ix := stakepool.NewInitializeInstruction(testProgramID, types.PubkeyFromSeed("A"), storage, 500)
	ix.Accounts[1].IsWritable = false

	result, err := env.rt.Invoke(ix)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrReadOnlyModified)
	assert.False(t, result.HasCustomCode)
	assert.False(t, env.pool(t, storage).IsInitialized)
}

func TestInvoke_FailureCommitsNothing(t *testing.T) {
	env := newTestEnv(t)
	programID := types.PubkeyFromSeed("scribbler")
	target := types.PubkeyFromSeed("target")
	require.NoError(t, env.rt.CreateAccount(target, programID, 4, 1))

	failing := errors.New("boom")
	env.registry.RegisterProgram(programID, "scribbler", ProgramFunc(func(ctx *syscall.ExecutionContext, _ []byte) error {
		acc, err := ctx.GetAccountByIndex(0)
		if err != nil {
			return err
		}
		copy(acc.Data, []byte{1, 2, 3, 4})
		*acc.Lamports = 99
		return failing
	}))

	result, err := env.rt.Invoke(types.Instruction{
		ProgramID: programID,
		Accounts:  []types.AccountMeta{{Pubkey: target, IsWritable: true}},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, failing)
	assert.False(t, result.HasCustomCode)
	assert.Contains(t, result.Logs[len(result.Logs)-1], "failed: boom")

	account, err := env.rt.GetAccount(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, account.Data)
	assert.Equal(t, types.Lamports(1), account.Lamports)
}

func TestInvoke_DuplicateAccountsShareState(t *testing.T) {
	env := newTestEnv(t)
	programID := types.PubkeyFromSeed("dup")
	target := types.PubkeyFromSeed("target")
	require.NoError(t, env.rt.CreateAccount(target, programID, 1, 1))

	env.registry.RegisterProgram(programID, "dup", ProgramFunc(func(ctx *syscall.ExecutionContext, _ []byte) error {
		// Write through the read-only alias; the writable one sees it.
		acc, err := ctx.GetAccountByIndex(0)
		if err != nil {
			return err
		}
		acc.Data[0] = 7
		return nil
	}))

	result, err := env.rt.Invoke(types.Instruction{
		ProgramID: programID,
		Accounts: []types.AccountMeta{
			{Pubkey: target},
			{Pubkey: target, IsWritable: true},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Success, "err: %v", result.Err)
	assert.Equal(t, []types.Pubkey{target}, result.Committed)

	account, err := env.rt.GetAccount(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, account.Data)
}

func TestInvoke_UnknownProgram(t *testing.T) {
	env := newTestEnv(t)
	unknown := types.PubkeyFromSeed("unknown")

	result, err := env.rt.Invoke(types.Instruction{ProgramID: unknown})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrProgramNotFound)
	assert.False(t, result.HasCustomCode)
}

func TestInvoke_InstructionDataTooLarge(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.rt.Invoke(types.Instruction{
		ProgramID: testProgramID,
		Data:      make([]byte, syscall.MaxInstructionData+1),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, ErrInstructionDataTooLarge)
}

func TestInvoke_Metrics(t *testing.T) {
	env := newTestEnv(t)
	storage := types.PubkeyFromSeed("S")
	env.createStorage(t, storage, testProgramID, stakepool.PoolStorageAccountSize)

	ix := stakepool.NewInitializeInstruction(testProgramID, types.PubkeyFromSeed("A"), storage, 500)
	_, err := env.rt.Invoke(ix)
	require.NoError(t, err)
	_, err = env.rt.Invoke(ix)
	require.NoError(t, err)
	_, err = env.rt.Invoke(ix)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.m.Invocations.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(env.m.Invocations.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.m.AccountsCommitted))
}

func TestInvoke_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := newTestEnv(t, WithLogger(zap.New(core)))
	storage := types.PubkeyFromSeed("S")
	env.createStorage(t, storage, types.SystemProgramID, stakepool.PoolStorageAccountSize)

	_, err := env.rt.Invoke(stakepool.NewInitializeInstruction(testProgramID, types.PubkeyFromSeed("A"), storage, 500))
	require.NoError(t, err)

	entries := logs.FilterMessage("invocation failed").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["custom_code"])
}

func TestCreateAccount(t *testing.T) {
	env := newTestEnv(t)
	pubkey := types.PubkeyFromSeed("S")

	require.NoError(t, env.rt.CreateAccount(pubkey, testProgramID, 57, 10))
	account, err := env.rt.GetAccount(pubkey)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, account.Owner)
	assert.Equal(t, make([]byte, 57), account.Data)
	assert.Equal(t, types.Lamports(10), account.Lamports)

	err = env.rt.CreateAccount(pubkey, testProgramID, 57, 10)
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestProgramRegistry(t *testing.T) {
	r := NewProgramRegistry()
	a := types.PubkeyFromSeed("a")
	b := types.PubkeyFromSeed("b")

	r.RegisterProgram(a, "a", ProgramFunc(func(*syscall.ExecutionContext, []byte) error { return nil }))
	r.RegisterProgram(b, "b", stakepool.New(b))
	assert.Equal(t, 2, r.Count())

	name, ok := r.GetProgramName(b)
	assert.True(t, ok)
	assert.Equal(t, "b", name)

	ids := r.ListPrograms()
	require.Len(t, ids, 2)
	assert.ElementsMatch(t, []types.Pubkey{a, b}, ids)

	r.UnregisterProgram(a)
	_, ok = r.GetProgram(a)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Count())
}

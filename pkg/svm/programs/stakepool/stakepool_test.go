package stakepool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

var testProgramID = types.PubkeyFromSeed("stakepool-test-program")

// Helper function to create test account infos
func testAccountInfo(seed string, owner types.Pubkey, data []byte, signer, writable bool) *syscall.AccountInfo {
	lamports := uint64(1_000_000_000)
	return &syscall.AccountInfo{
		Pubkey:     types.PubkeyFromSeed(seed),
		Lamports:   &lamports,
		Data:       data,
		Owner:      owner,
		IsSigner:   signer,
		IsWritable: writable,
	}
}

func signerAccount(seed string) *syscall.AccountInfo {
	return testAccountInfo(seed, types.SystemProgramID, nil, true, true)
}

func storageAccount() *syscall.AccountInfo {
	return testAccountInfo("pool-storage", testProgramID, make([]byte, PoolStorageAccountSize), false, true)
}

func execute(t *testing.T, accounts []*syscall.AccountInfo, inst Instruction) (*syscall.ExecutionContext, error) {
	t.Helper()
	data := inst.Encode()
	ctx := syscall.NewExecutionContext(testProgramID, accounts, data)
	return ctx, New(testProgramID).Execute(ctx, data)
}

func decodePool(t *testing.T, storage *syscall.AccountInfo) PoolStorageAccount {
	t.Helper()
	var pool PoolStorageAccount
	require.NoError(t, pool.Decode(storage.Data))
	return pool
}

func TestInitialize(t *testing.T) {
	signer := signerAccount("A")
	storage := storageAccount()

	ctx, err := execute(t, []*syscall.AccountInfo{signer, storage}, &InitializeInstruction{RewardsPerToken: 500})
	require.NoError(t, err)

	assert.Equal(t, PoolStorageAccount{
		PoolAuthority:   signer.Pubkey,
		TotalStaked:     0,
		UserCount:       0,
		RewardsPerToken: 500,
		IsInitialized:   true,
	}, decodePool(t, storage))

	logs := ctx.GetLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, "Program log: Initialize pool", logs[0])
	assert.Contains(t, logs[1], "Program log: Staking pool is initialized")
	assert.Contains(t, logs[1], signer.Pubkey.String())
}

func TestInitialize_Twice(t *testing.T) {
	storage := storageAccount()

	_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &InitializeInstruction{RewardsPerToken: 500})
	require.NoError(t, err)
	first := decodePool(t, storage)
	firstBytes := bytes.Clone(storage.Data)

	ctx, err := execute(t, []*syscall.AccountInfo{signerAccount("B"), storage}, &InitializeInstruction{RewardsPerToken: 999})
	require.ErrorIs(t, err, ErrAccountInitialized)

	code, ok := CustomErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, uint32(3), code)

	assert.Equal(t, first, decodePool(t, storage))
	assert.Equal(t, firstBytes, storage.Data)
	assert.Equal(t, types.PubkeyFromSeed("A"), first.PoolAuthority)
	assert.Equal(t, uint64(500), first.RewardsPerToken)
	assert.Equal(t, []string{"Program log: Initialize pool"}, ctx.GetLogs())
}

func TestInitialize_SameSignerTwice(t *testing.T) {
	storage := storageAccount()
	accounts := []*syscall.AccountInfo{signerAccount("A"), storage}

	_, err := execute(t, accounts, &InitializeInstruction{RewardsPerToken: 1})
	require.NoError(t, err)
	_, err = execute(t, accounts, &InitializeInstruction{RewardsPerToken: 1})
	assert.ErrorIs(t, err, ErrAccountInitialized)
}

func TestInitialize_NotSigner(t *testing.T) {
	initialized := PoolStorageAccount{PoolAuthority: types.PubkeyFromSeed("A"), RewardsPerToken: 5, IsInitialized: true}

	tests := []struct {
		name    string
		storage *syscall.AccountInfo
	}{
		{"zeroed storage", storageAccount()},
		{"initialized storage", testAccountInfo("pool-storage", testProgramID, initialized.Encode(), false, true)},
		{"foreign storage", testAccountInfo("pool-storage", types.SystemProgramID, make([]byte, PoolStorageAccountSize), false, true)},
		{"short storage", testAccountInfo("pool-storage", testProgramID, []byte{1}, false, true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := testAccountInfo("A", types.SystemProgramID, nil, false, true)
			before := bytes.Clone(tt.storage.Data)

			_, err := execute(t, []*syscall.AccountInfo{caller, tt.storage}, &InitializeInstruction{RewardsPerToken: 500})
			require.ErrorIs(t, err, ErrInvalidSigner)
			assert.Equal(t, before, tt.storage.Data)

			code, ok := CustomErrorCode(err)
			require.True(t, ok)
			assert.Equal(t, uint32(1), code)
		})
	}
}

func TestInitialize_NotSignerWithoutStorage(t *testing.T) {
	caller := testAccountInfo("A", types.SystemProgramID, nil, false, true)
	_, err := execute(t, []*syscall.AccountInfo{caller}, &InitializeInstruction{RewardsPerToken: 500})
	assert.ErrorIs(t, err, ErrInvalidSigner)
}

func TestInitialize_WrongOwner(t *testing.T) {
	storage := testAccountInfo("pool-storage", types.PubkeyFromSeed("other-program"), make([]byte, PoolStorageAccountSize), false, true)

	_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &InitializeInstruction{RewardsPerToken: 500})
	require.ErrorIs(t, err, ErrInvalidOwner)
	assert.Equal(t, make([]byte, PoolStorageAccountSize), storage.Data)

	code, ok := CustomErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, uint32(2), code)
}

func TestInitialize_NotEnoughAccounts(t *testing.T) {
	_, err := execute(t, nil, &InitializeInstruction{RewardsPerToken: 500})
	assert.ErrorIs(t, err, syscall.ErrNotEnoughAccountKeys)

	_, err = execute(t, []*syscall.AccountInfo{signerAccount("A")}, &InitializeInstruction{RewardsPerToken: 500})
	assert.ErrorIs(t, err, syscall.ErrNotEnoughAccountKeys)

	_, isCustom := CustomErrorCode(err)
	assert.False(t, isCustom)
}

func TestInitialize_ShortStorage(t *testing.T) {
	storage := testAccountInfo("pool-storage", testProgramID, make([]byte, PoolStorageAccountSize-1), false, true)

	_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &InitializeInstruction{RewardsPerToken: 500})
	assert.ErrorIs(t, err, ErrInvalidAccountData)
	assert.Equal(t, make([]byte, PoolStorageAccountSize-1), storage.Data)
}

func TestInitialize_CorruptStorage(t *testing.T) {
	data := make([]byte, PoolStorageAccountSize)
	data[PoolStorageAccountSize-1] = 0xff
	storage := testAccountInfo("pool-storage", testProgramID, data, false, true)

	_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &InitializeInstruction{RewardsPerToken: 500})
	assert.ErrorIs(t, err, ErrInvalidAccountData)
	assert.Equal(t, byte(0xff), storage.Data[PoolStorageAccountSize-1])
}

func TestInitialize_LargerStorageKeepsTail(t *testing.T) {
	data := make([]byte, PoolStorageAccountSize+4)
	copy(data[PoolStorageAccountSize:], []byte{9, 8, 7, 6})
	storage := testAccountInfo("pool-storage", testProgramID, data, false, true)

	_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &InitializeInstruction{RewardsPerToken: 500})
	require.NoError(t, err)
	assert.True(t, decodePool(t, storage).IsInitialized)
	assert.Equal(t, []byte{9, 8, 7, 6}, storage.Data[PoolStorageAccountSize:])
}

func TestUnimplementedInstructions(t *testing.T) {
	for _, inst := range []Instruction{
		&CreateUserInstruction{},
		&StakeInstruction{Amount: 10},
		&UnstakeInstruction{Amount: 10},
		&ClaimInstruction{},
	} {
		t.Run(inst.Name(), func(t *testing.T) {
			storage := storageAccount()
			_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &InitializeInstruction{RewardsPerToken: 500})
			require.NoError(t, err)
			before := bytes.Clone(storage.Data)

			ctx, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, inst)
			require.ErrorIs(t, err, ErrInvalidInstruction)
			assert.Equal(t, before, storage.Data)
			assert.Empty(t, ctx.GetLogs())
		})
	}
}

func TestStakeOnZeroedStorage(t *testing.T) {
	storage := storageAccount()

	_, err := execute(t, []*syscall.AccountInfo{signerAccount("A"), storage}, &StakeInstruction{Amount: 10})
	require.ErrorIs(t, err, ErrInvalidInstruction)
	assert.Equal(t, make([]byte, PoolStorageAccountSize), storage.Data)
}

func TestExecute_InvalidData(t *testing.T) {
	storage := storageAccount()
	accounts := []*syscall.AccountInfo{signerAccount("A"), storage}

	for _, data := range [][]byte{nil, {9}, {0, 1}} {
		ctx := syscall.NewExecutionContext(testProgramID, accounts, data)
		err := New(testProgramID).Execute(ctx, data)
		assert.ErrorIs(t, err, ErrInvalidInstruction)
	}
	assert.Equal(t, make([]byte, PoolStorageAccountSize), storage.Data)
}

func TestProcess(t *testing.T) {
	signer := signerAccount("A")
	storage := storageAccount()

	err := Process(testProgramID, []*syscall.AccountInfo{signer, storage}, (&InitializeInstruction{RewardsPerToken: 77}).Encode())
	require.NoError(t, err)
	assert.Equal(t, uint64(77), decodePool(t, storage).RewardsPerToken)

	// The same storage under a different program identity is foreign.
	err = Process(types.PubkeyFromSeed("impostor"), []*syscall.AccountInfo{signer, storage}, (&InitializeInstruction{RewardsPerToken: 1}).Encode())
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestBuilders(t *testing.T) {
	authority := types.PubkeyFromSeed("A")
	storage := types.PubkeyFromSeed("pool-storage")

	ix := NewInitializeInstruction(testProgramID, authority, storage, 500)
	assert.Equal(t, testProgramID, ix.ProgramID)
	require.Len(t, ix.Accounts, 2)
	assert.Equal(t, types.AccountMeta{Pubkey: authority, IsSigner: true}, ix.Accounts[0])
	assert.Equal(t, types.AccountMeta{Pubkey: storage, IsWritable: true}, ix.Accounts[1])

	decoded, err := DecodeInstruction(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, &InitializeInstruction{RewardsPerToken: 500}, decoded)

	for _, ix := range []types.Instruction{
		NewCreateUserInstruction(testProgramID, authority, storage),
		NewStakeInstruction(testProgramID, authority, storage, 1),
		NewUnstakeInstruction(testProgramID, authority, storage, 1),
		NewClaimInstruction(testProgramID, authority, storage),
	} {
		_, err := DecodeInstruction(ix.Data)
		assert.NoError(t, err)
		assert.Len(t, ix.Accounts, 2)
	}
}

func TestStakingErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid instruction", ErrInvalidInstruction.Error())
	assert.Equal(t, "account already initialized", ErrAccountInitialized.Error())
	assert.Equal(t, "custom program error: 0x2a", StakingError(42).Error())

	_, ok := CustomErrorCode(ErrInvalidAccountData)
	assert.False(t, ok)
}

func TestFindPoolAddress(t *testing.T) {
	authority := types.PubkeyFromSeed("authority")

	pool, bump, err := FindPoolAddress(testProgramID, authority)
	require.NoError(t, err)
	assert.False(t, syscall.IsOnCurve(pool[:]))

	again, againBump, err := FindPoolAddress(testProgramID, authority)
	require.NoError(t, err)
	assert.Equal(t, pool, again)
	assert.Equal(t, bump, againBump)

	other, _, err := FindPoolAddress(testProgramID, types.PubkeyFromSeed("someone else"))
	require.NoError(t, err)
	assert.NotEqual(t, pool, other)
}

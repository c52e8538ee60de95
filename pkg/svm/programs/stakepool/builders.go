package stakepool

import (
	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// PoolSeed prefixes the seeds of a pool storage address.
const PoolSeed = "pool"

// FindPoolAddress derives the canonical storage address for the pool run by
// authority: a program address from the seeds ["pool", authority].
func FindPoolAddress(programID, authority types.Pubkey) (types.Pubkey, uint8, error) {
	return syscall.FindProgramAddress([][]byte{[]byte(PoolSeed), authority[:]}, programID)
}

// poolAccounts returns the account list every pool instruction takes:
// the signing authority followed by the writable storage account.
func poolAccounts(authority, storage types.Pubkey) []types.AccountMeta {
	return []types.AccountMeta{
		{
			Pubkey:     authority,
			IsSigner:   true,
			IsWritable: false,
		},
		{
			Pubkey:     storage,
			IsSigner:   false,
			IsWritable: true,
		},
	}
}

// NewInitializeInstruction builds an Initialize instruction for the pool
// held in storage, with authority as the future pool authority.
func NewInitializeInstruction(programID, authority, storage types.Pubkey, rewardsPerToken uint64) types.Instruction {
	inst := &InitializeInstruction{RewardsPerToken: rewardsPerToken}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  poolAccounts(authority, storage),
		Data:      inst.Encode(),
	}
}

// NewCreateUserInstruction builds a CreateUser instruction.
func NewCreateUserInstruction(programID, user, storage types.Pubkey) types.Instruction {
	inst := &CreateUserInstruction{}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  poolAccounts(user, storage),
		Data:      inst.Encode(),
	}
}

// NewStakeInstruction builds a Stake instruction.
func NewStakeInstruction(programID, user, storage types.Pubkey, amount uint64) types.Instruction {
	inst := &StakeInstruction{Amount: amount}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  poolAccounts(user, storage),
		Data:      inst.Encode(),
	}
}

// NewUnstakeInstruction builds an Unstake instruction.
func NewUnstakeInstruction(programID, user, storage types.Pubkey, amount uint64) types.Instruction {
	inst := &UnstakeInstruction{Amount: amount}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  poolAccounts(user, storage),
		Data:      inst.Encode(),
	}
}

// NewClaimInstruction builds a Claim instruction.
func NewClaimInstruction(programID, user, storage types.Pubkey) types.Instruction {
	inst := &ClaimInstruction{}
	return types.Instruction{
		ProgramID: programID,
		Accounts:  poolAccounts(user, storage),
		Data:      inst.Encode(),
	}
}

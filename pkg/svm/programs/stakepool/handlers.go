package stakepool

import (
	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
)

// handleInitialize handles the Initialize instruction.
// Sets up the pool record with the signer as pool authority.
// Account layout:
//
//	[0] pool authority (signer)
//	[1] pool storage account (writable, owned by the program)
func handleInitialize(ctx *syscall.ExecutionContext, inst *InitializeInstruction) error {
	signer, storage, err := validateInitialize(ctx)
	if err != nil {
		return err
	}

	pool, err := loadPool(storage)
	if err != nil {
		return err
	}
	if err := ensureNotInitialized(pool); err != nil {
		return err
	}

	pool.PoolAuthority = signer.Pubkey
	pool.TotalStaked = 0
	pool.UserCount = 0
	pool.RewardsPerToken = inst.RewardsPerToken
	pool.IsInitialized = true

	if err := storePool(storage, pool); err != nil {
		return err
	}

	ctx.Log("Staking pool is initialized %s", pool)
	return nil
}

package stakepool

import (
	"fmt"

	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// validateInitialize takes the Initialize accounts in order and checks their
// roles, stopping at the first failure: [0] must have signed, [1] must be
// owned by the executing program.
func validateInitialize(ctx *syscall.ExecutionContext) (signer, storage *syscall.AccountInfo, err error) {
	accounts := ctx.Iter()

	if signer, err = accounts.Next(); err != nil {
		return nil, nil, err
	}
	if err = requireSigner(signer); err != nil {
		return nil, nil, err
	}

	if storage, err = accounts.Next(); err != nil {
		return nil, nil, err
	}
	if err = requireOwnedBy(storage, ctx.ProgramID); err != nil {
		return nil, nil, err
	}
	return signer, storage, nil
}

// requireSigner fails with ErrInvalidSigner unless acc signed the invocation.
func requireSigner(acc *syscall.AccountInfo) error {
	if !acc.IsSigner {
		return fmt.Errorf("%w: %s did not sign", ErrInvalidSigner, acc.Pubkey)
	}
	return nil
}

// requireOwnedBy fails with ErrInvalidOwner unless acc is owned by owner.
func requireOwnedBy(acc *syscall.AccountInfo, owner types.Pubkey) error {
	if acc.Owner != owner {
		return fmt.Errorf("%w: account %s owned by %s, expected %s",
			ErrInvalidOwner, acc.Pubkey, acc.Owner, owner)
	}
	return nil
}

// ensureNotInitialized rejects a second initialization of the pool. Letting
// it through would hand pool authority to any later signer.
func ensureNotInitialized(pool *PoolStorageAccount) error {
	if pool.IsInitialized {
		return ErrAccountInitialized
	}
	return nil
}

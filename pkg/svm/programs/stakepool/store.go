package stakepool

import (
	"fmt"

	"github.com/fortiblox/x1-stakepool/pkg/svm/syscall"
)

// loadPool decodes the pool record held in the storage account.
func loadPool(storage *syscall.AccountInfo) (*PoolStorageAccount, error) {
	var pool PoolStorageAccount
	if err := pool.Decode(storage.Data); err != nil {
		return nil, fmt.Errorf("storage account %s: %w", storage.Pubkey, err)
	}
	return &pool, nil
}

// storePool overwrites the record region of the storage account in one
// copy. Bytes past the record are left as they are.
func storePool(storage *syscall.AccountInfo, pool *PoolStorageAccount) error {
	if len(storage.Data) < PoolStorageAccountSize {
		return fmt.Errorf("%w: storage account %s holds %d bytes, need %d",
			ErrInvalidAccountData, storage.Pubkey, len(storage.Data), PoolStorageAccountSize)
	}
	copy(storage.Data[:PoolStorageAccountSize], pool.Encode())
	return nil
}

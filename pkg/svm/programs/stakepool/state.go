package stakepool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// PoolStorageAccountSize is the encoded size of PoolStorageAccount:
// authority (32) + total staked (8) + user count (8) + rewards per token (8)
// + initialized flag (1).
const PoolStorageAccountSize = 32 + 8 + 8 + 8 + 1

// PoolStorageAccount is the persistent pool record kept in the storage
// account owned by the program.
type PoolStorageAccount struct {
	PoolAuthority   types.Pubkey // Account that initialized the pool
	TotalStaked     uint64       // Sum of staked value
	UserCount       uint64       // Number of participating users
	RewardsPerToken uint64       // Reward rate set at initialization
	IsInitialized   bool
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (p *PoolStorageAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(p.PoolAuthority[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(p.TotalStaked, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(p.UserCount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(p.RewardsPerToken, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBool(p.IsInitialized)
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
// The flag byte must be 0 or 1, as Borsh requires for booleans.
func (p *PoolStorageAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	authority, err := decoder.ReadBytes(types.PubkeySize)
	if err != nil {
		return err
	}
	copy(p.PoolAuthority[:], authority)

	if p.TotalStaked, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.UserCount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.RewardsPerToken, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}

	flag, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	switch flag {
	case 0:
		p.IsInitialized = false
	case 1:
		p.IsInitialized = true
	default:
		return fmt.Errorf("invalid bool value %d", flag)
	}
	return nil
}

// Encode encodes the record to exactly PoolStorageAccountSize bytes.
func (p *PoolStorageAccount) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, PoolStorageAccountSize))
	// Writes into a bytes.Buffer cannot fail.
	_ = p.MarshalWithEncoder(bin.NewBorshEncoder(buf))
	return buf.Bytes()
}

// Decode decodes the record from the first PoolStorageAccountSize bytes of
// data. A zero-filled buffer decodes to an uninitialized record.
func (p *PoolStorageAccount) Decode(data []byte) error {
	if len(data) < PoolStorageAccountSize {
		return fmt.Errorf("%w: pool record requires %d bytes, got %d",
			ErrInvalidAccountData, PoolStorageAccountSize, len(data))
	}
	var decoded PoolStorageAccount
	if err := decoded.UnmarshalWithDecoder(bin.NewBorshDecoder(data[:PoolStorageAccountSize])); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	*p = decoded
	return nil
}

// String renders the record for the program log.
func (p *PoolStorageAccount) String() string {
	return fmt.Sprintf("PoolStorageAccount { pool_authority: %s, total_staked: %d, user_count: %d, rewards_per_token: %d, is_initialized: %t }",
		p.PoolAuthority, p.TotalStaked, p.UserCount, p.RewardsPerToken, p.IsInitialized)
}

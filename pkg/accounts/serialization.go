package accounts

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Serialization format (little-endian):
// - version:    1 byte
// - lamports:   8 bytes
// - owner:      32 bytes
// - executable: 1 byte (0 or 1)
// - rent_epoch: 8 bytes
// - data_len:   4 bytes
// - data:       data_len bytes

const (
	serializationVersion = 1
	serializationMinSize = 1 + 8 + 32 + 1 + 8 + 4
)

var (
	// ErrInvalidAccountData is returned when stored account bytes are malformed.
	ErrInvalidAccountData = errors.New("invalid account data")
)

// SerializeAccount serializes an account to binary format.
func SerializeAccount(account *types.Account) ([]byte, error) {
	if account == nil {
		return nil, errors.New("cannot serialize nil account")
	}

	buf := bytes.NewBuffer(make([]byte, 0, serializationMinSize+len(account.Data)))
	encoder := bin.NewBorshEncoder(buf)

	if err := encoder.WriteUint8(serializationVersion); err != nil {
		return nil, err
	}
	if err := encoder.WriteUint64(uint64(account.Lamports), bin.LE); err != nil {
		return nil, err
	}
	if err := encoder.WriteBytes(account.Owner[:], false); err != nil {
		return nil, err
	}
	if err := encoder.WriteBool(account.Executable); err != nil {
		return nil, err
	}
	if err := encoder.WriteUint64(uint64(account.RentEpoch), bin.LE); err != nil {
		return nil, err
	}
	if err := encoder.WriteUint32(uint32(len(account.Data)), bin.LE); err != nil {
		return nil, err
	}
	if err := encoder.WriteBytes(account.Data, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeAccount deserializes an account from binary format.
func DeserializeAccount(data []byte) (*types.Account, error) {
	if len(data) < serializationMinSize {
		return nil, fmt.Errorf("%w: data too short, need at least %d bytes, got %d",
			ErrInvalidAccountData, serializationMinSize, len(data))
	}

	decoder := bin.NewBorshDecoder(data)

	version, err := decoder.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if version != serializationVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidAccountData, version)
	}

	account := &types.Account{}

	lamports, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: lamports: %v", ErrInvalidAccountData, err)
	}
	account.Lamports = types.Lamports(lamports)

	owner, err := decoder.ReadBytes(types.PubkeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidAccountData, err)
	}
	copy(account.Owner[:], owner)

	if account.Executable, err = decoder.ReadBool(); err != nil {
		return nil, fmt.Errorf("%w: executable: %v", ErrInvalidAccountData, err)
	}

	rentEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: rent epoch: %v", ErrInvalidAccountData, err)
	}
	account.RentEpoch = types.Epoch(rentEpoch)

	dataLen, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: data length: %v", ErrInvalidAccountData, err)
	}
	if int(dataLen) != decoder.Remaining() {
		return nil, fmt.Errorf("%w: data length mismatch, expected %d bytes, got %d",
			ErrInvalidAccountData, dataLen, decoder.Remaining())
	}

	if dataLen > 0 {
		accountData, err := decoder.ReadBytes(int(dataLen))
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrInvalidAccountData, err)
		}
		account.Data = make([]byte, dataLen)
		copy(account.Data, accountData)
	}

	return account, nil
}

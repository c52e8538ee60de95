package accounts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// Snapshot stream layout, zstd-compressed:
// - magic:    8 bytes "STKPSNP1"
// - count:    8 bytes
// - records:  count x (pubkey 32 | len 4 | serialized account)
// - checksum: 32 bytes BLAKE2b-256 of everything above
//
// All integers are little-endian.

var snapshotMagic = [8]byte{'S', 'T', 'K', 'P', 'S', 'N', 'P', '1'}

// maxSnapshotRecord bounds a single serialized account read from a snapshot.
const maxSnapshotRecord = 16 << 20

var (
	// ErrInvalidSnapshot is returned when a snapshot stream is malformed.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// ExportSnapshot writes every account in db to w as a zstd-compressed stream.
// It returns the number of accounts written.
func ExportSnapshot(db AccountsDB, w io.Writer) (uint64, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	// Records are buffered so the count can precede them.
	var body bytes.Buffer
	var count uint64
	err = db.ForEach(func(pubkey types.Pubkey, account *types.Account) error {
		data, err := SerializeAccount(account)
		if err != nil {
			return fmt.Errorf("account %s: %w", pubkey, err)
		}

		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
		body.Write(pubkey[:])
		body.Write(lenBuf[:])
		body.Write(data)
		count++
		return nil
	})
	if err != nil {
		enc.Close()
		return 0, err
	}

	var header [16]byte
	copy(header[:8], snapshotMagic[:])
	binary.LittleEndian.PutUint64(header[8:], count)

	hasher, _ := blake2b.New256(nil)
	hasher.Write(header[:])
	hasher.Write(body.Bytes())

	if _, err := enc.Write(header[:]); err != nil {
		enc.Close()
		return 0, fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if _, err := body.WriteTo(enc); err != nil {
		enc.Close()
		return 0, fmt.Errorf("failed to write snapshot records: %w", err)
	}
	if _, err := enc.Write(hasher.Sum(nil)); err != nil {
		enc.Close()
		return 0, fmt.Errorf("failed to write snapshot checksum: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush snapshot: %w", err)
	}

	return count, nil
}

// ImportSnapshot reads a stream produced by ExportSnapshot and stores its
// accounts in db with a single CommitAccounts call. Nothing is written if
// the stream is malformed.
func ImportSnapshot(db AccountsDB, r io.Reader) (uint64, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	hasher, _ := blake2b.New256(nil)
	stream := io.TeeReader(dec, hasher)

	var header [16]byte
	if _, err := io.ReadFull(stream, header[:]); err != nil {
		return 0, fmt.Errorf("%w: header: %v", ErrInvalidSnapshot, err)
	}
	if !bytes.Equal(header[:8], snapshotMagic[:]) {
		return 0, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, header[:8])
	}
	count := binary.LittleEndian.Uint64(header[8:])

	accounts := make(map[types.Pubkey]*types.Account)
	for i := uint64(0); i < count; i++ {
		var recHeader [types.PubkeySize + 4]byte
		if _, err := io.ReadFull(stream, recHeader[:]); err != nil {
			return 0, fmt.Errorf("%w: record %d: %v", ErrInvalidSnapshot, i, err)
		}

		var pubkey types.Pubkey
		copy(pubkey[:], recHeader[:types.PubkeySize])

		size := binary.LittleEndian.Uint32(recHeader[types.PubkeySize:])
		if size > maxSnapshotRecord {
			return 0, fmt.Errorf("%w: record %d too large (%d bytes)", ErrInvalidSnapshot, i, size)
		}

		data := make([]byte, size)
		if _, err := io.ReadFull(stream, data); err != nil {
			return 0, fmt.Errorf("%w: record %d: %v", ErrInvalidSnapshot, i, err)
		}

		account, err := DeserializeAccount(data)
		if err != nil {
			return 0, fmt.Errorf("%w: account %s: %v", ErrInvalidSnapshot, pubkey, err)
		}
		if _, dup := accounts[pubkey]; dup {
			return 0, fmt.Errorf("%w: account %s appears twice", ErrInvalidSnapshot, pubkey)
		}
		accounts[pubkey] = account
	}

	want := hasher.Sum(nil)
	var got [blake2b.Size256]byte
	if _, err := io.ReadFull(dec, got[:]); err != nil {
		return 0, fmt.Errorf("%w: checksum: %v", ErrInvalidSnapshot, err)
	}
	if !bytes.Equal(want, got[:]) {
		return 0, fmt.Errorf("%w: checksum mismatch", ErrInvalidSnapshot)
	}
	n, err := io.Copy(io.Discard, dec)
	if err != nil {
		return 0, fmt.Errorf("%w: after checksum: %v", ErrInvalidSnapshot, err)
	}
	if n > 0 {
		return 0, fmt.Errorf("%w: %d trailing bytes after checksum", ErrInvalidSnapshot, n)
	}

	if err := db.CommitAccounts(accounts); err != nil {
		return 0, err
	}
	return uint64(len(accounts)), nil
}

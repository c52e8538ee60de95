package syscall

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/fortiblox/x1-stakepool/pkg/types"
)

// PDA constants
const (
	// MaxSeeds is the maximum number of seeds for PDA derivation
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed
	MaxSeedLen = 32
	// PDAMarker is the string appended during PDA derivation
	PDAMarker = "ProgramDerivedAddress"
)

// PDA errors
var (
	ErrMaxSeedsExceeded      = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("seed too long")
	ErrInvalidSeeds          = errors.New("seeds derive an address on the ed25519 curve")
	ErrNoViableBump          = errors.New("unable to find a viable program address bump seed")
)

// CreateProgramAddress derives a Program Derived Address:
// SHA256(seeds... || program_id || "ProgramDerivedAddress").
// The result must NOT be on the ed25519 curve, so no private key exists for it.
func CreateProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return types.Pubkey{}, fmt.Errorf("%w: %d > %d", ErrMaxSeedsExceeded, len(seeds), MaxSeeds)
	}

	hasher := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return types.Pubkey{}, fmt.Errorf("%w: seed %d has %d bytes", ErrMaxSeedLengthExceeded, i, len(seed))
		}
		hasher.Write(seed)
	}
	hasher.Write(programID[:])
	hasher.Write([]byte(PDAMarker))

	var pda types.Pubkey
	copy(pda[:], hasher.Sum(nil))

	if IsOnCurve(pda[:]) {
		return types.Pubkey{}, ErrInvalidSeeds
	}
	return pda, nil
}

// FindProgramAddress finds a valid PDA by appending bump seeds from 255 down
// to 0. Returns the PDA and the bump seed that produced it.
func FindProgramAddress(seeds [][]byte, programID types.Pubkey) (types.Pubkey, uint8, error) {
	// Leave room for the bump seed
	if len(seeds) >= MaxSeeds {
		return types.Pubkey{}, 0, fmt.Errorf("%w: %d seeds leave no room for a bump", ErrMaxSeedsExceeded, len(seeds))
	}

	seedsWithBump := make([][]byte, len(seeds)+1)
	copy(seedsWithBump, seeds)
	bumpSeed := []byte{0}
	seedsWithBump[len(seeds)] = bumpSeed

	for bump := 255; bump >= 0; bump-- {
		bumpSeed[0] = uint8(bump)
		pda, err := CreateProgramAddress(seedsWithBump, programID)
		if err == nil {
			return pda, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return types.Pubkey{}, 0, err
		}
	}

	return types.Pubkey{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether a 32-byte value decompresses to a point on the
// ed25519 curve.
func IsOnCurve(data []byte) bool {
	if len(data) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(data)
	return err == nil
}

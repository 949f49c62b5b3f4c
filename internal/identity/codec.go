// Package identity mints the 128-bit identifiers used to name every
// entity record (rooms, users, memberships, sessions). An identifier
// packs a millisecond timestamp, a 48-bit machine tag and a 16-bit
// per-millisecond sequence, so identifiers minted on different hosts
// never collide without any coordination.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	machineTagBits = 48
	sequenceBits   = 16

	// MaxMachineTag is the largest machine tag that fits in 48 bits.
	MaxMachineTag = (1 << machineTagBits) - 1

	// MaxSequence is the per-millisecond minting capacity.
	MaxSequence = 1 << sequenceBits // 65536
)

// ErrUnsupported is returned when an identifier is asked for a
// representation it cannot provide.
var ErrUnsupported = errors.New("identifier does not fit in 64 bits")

// ID is a 128-bit identifier. Bytes 0-7 hold the big-endian unix
// millisecond timestamp (sign bit reserved); bytes 8-15 hold
// machineTag<<16 | sequence, big-endian. IDs are immutable once minted.
type ID [16]byte

// Encode packs a timestamp, machine tag and sequence into an ID.
func Encode(tsMillis int64, machineTag uint64, seq uint32) ID {
	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(tsMillis))
	binary.BigEndian.PutUint64(id[8:16], machineTag<<sequenceBits|uint64(seq))
	return id
}

// Timestamp returns the unix millisecond timestamp component.
func (id ID) Timestamp() int64 {
	return int64(binary.BigEndian.Uint64(id[0:8]))
}

// MachineTag returns the 48-bit machine tag component.
func (id ID) MachineTag() uint64 {
	return binary.BigEndian.Uint64(id[8:16]) >> sequenceBits
}

// Sequence returns the 16-bit per-millisecond sequence component.
func (id ID) Sequence() uint32 {
	return uint32(binary.BigEndian.Uint64(id[8:16]) & (MaxSequence - 1))
}

// Hex renders the identifier as two zero-padded 16-hex-digit groups.
func (id ID) Hex() string {
	return fmt.Sprintf("%016x%016x",
		binary.BigEndian.Uint64(id[0:8]),
		binary.BigEndian.Uint64(id[8:16]))
}

func (id ID) String() string {
	return id.Hex()
}

// Int64 is unsupported: the identifier layout needs 128 bits.
func (id ID) Int64() (int64, error) {
	return 0, ErrUnsupported
}

// Bytes returns the raw 16-byte representation.
func (id ID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// ParseHex parses the 32-character hex representation produced by Hex.
func ParseHex(s string) (ID, error) {
	if len(s) != 32 {
		return ID{}, fmt.Errorf("identifier must be 32 hex digits, got %d", len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid identifier: %w", err)
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

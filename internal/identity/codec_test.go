package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		ts      int64
		machine uint64
		seq     uint32
	}{
		{"zero", 0, 0, 0},
		{"now", time.Now().UnixMilli(), 0x0000a1b2c3d4, 42},
		{"max sequence", 1700000000000, MaxMachineTag, MaxSequence - 1},
		{"small machine tag", 1, 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Encode(tc.ts, tc.machine, tc.seq)

			assert.Equal(t, tc.ts, id.Timestamp())
			assert.Equal(t, tc.machine, id.MachineTag())
			assert.Equal(t, tc.seq, id.Sequence())
		})
	}
}

func TestHexFormat(t *testing.T) {
	id := Encode(0x1234, 0xabcdef012345, 0x6789)

	hex := id.Hex()
	require.Len(t, hex, 32)
	// bytes 0-7: big-endian timestamp, zero padded
	assert.Equal(t, "0000000000001234", hex[:16])
	// bytes 8-15: machineTag<<16 | sequence
	assert.Equal(t, "abcdef0123456789", hex[16:])
}

func TestParseHex(t *testing.T) {
	id := Encode(time.Now().UnixMilli(), 0x00deadbeef01, 7)

	parsed, err := ParseHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseHex("too short")
	assert.Error(t, err)

	_, err = ParseHex("zz000000000000000000000000000000")
	assert.Error(t, err)
}

func TestInt64Unsupported(t *testing.T) {
	id := Encode(time.Now().UnixMilli(), 1, 1)

	_, err := id.Int64()
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestBytes(t *testing.T) {
	id := Encode(5, 6, 7)

	b := id.Bytes()
	require.Len(t, b, 16)

	// Mutating the copy must not touch the identifier.
	b[0] = 0xff
	assert.Equal(t, int64(5), id.Timestamp())
}

package identity

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/jointrip/companion-service/internal/fault"
)

// Minter hands out identifiers one at a time with no duplicates.
// Exactly one Minter should exist per machine tag; construct it once at
// startup and inject it wherever identifiers are needed.
type Minter struct {
	mu         sync.Mutex
	machineTag uint64
	lastMillis int64
	seq        uint32
}

// NewMinter creates a Minter for the given 48-bit machine tag.
func NewMinter(machineTag uint64) *Minter {
	return &Minter{machineTag: machineTag & MaxMachineTag}
}

// Next mints the next identifier. When the per-millisecond sequence is
// exhausted the caller is held back for maxWait before minting proceeds;
// the bound is intentionally not re-checked after the wait. An
// interrupted wait fails with a too-fast fault, which is transient and
// safe to retry.
func (m *Minter) Next(ctx context.Context, maxWait time.Duration) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seq > MaxSequence {
		timer := time.NewTimer(maxWait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ID{}, fault.TooFastf("identifier minting too fast: %v", ctx.Err())
		}
	}

	now := time.Now().UnixMilli()
	if now != m.lastMillis {
		m.seq = 0
		m.lastMillis = now
	}
	m.seq++

	return Encode(m.lastMillis, m.machineTag, m.seq), nil
}

// MachineTag returns the tag this minter was built with.
func (m *Minter) MachineTag() uint64 {
	return m.machineTag
}

// HostMachineTag derives the 48-bit machine tag from the first
// non-loopback hardware (MAC) address. When no usable interface exists
// a random tag is drawn so the process can still mint, at the cost of
// losing cross-restart stability.
func HostMachineTag() (uint64, error) {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, ifc := range ifaces {
			if ifc.Flags&net.FlagLoopback != 0 {
				continue
			}
			hw := ifc.HardwareAddr
			if len(hw) < 6 {
				continue
			}
			var tag uint64
			for _, b := range hw[:6] {
				tag = tag<<8 | uint64(b)
			}
			return tag, nil
		}
	}

	var b [8]byte
	if _, err := rand.Read(b[2:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]) & MaxMachineTag, nil
}

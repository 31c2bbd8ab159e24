// Package phy defines the narrow byte-stream contract the DP master consumes
// from whatever transport carries PROFIBUS octets (RS-485 UART, a test
// loopback, …), plus the bus-allocation timing throttle shared by every
// implementation.
package phy

import (
	"fmt"
	"sync"
	"time"
)

// Standard PROFIBUS baud rates.
const (
	Baud9600    = 9600
	Baud19200   = 19200
	Baud45450   = 45450
	Baud93750   = 93750
	Baud187500  = 187500
	Baud500000  = 500000
	Baud1500000 = 1500000
	Baud3000000 = 3000000
	Baud6000000 = 6000000
	Baud12000000 = 12000000
)

// Phy is the physical-layer contract the master depends on. Implementations
// reassemble raw octets into complete FDL frames internally; PollData
// returns nil when no complete frame is available within timeout.
type Phy interface {
	// SendData transmits a complete, already-encoded telegram. srd indicates
	// the peer is expected to reply, so the implementation may arm a receive
	// window or flip an RS-485 direction pin.
	SendData(telegramData []byte, srd bool) error
	// PollData returns the next complete raw frame, or nil if none arrived
	// within timeout. timeout == 0 means return immediately; negative means
	// block indefinitely.
	PollData(timeout time.Duration) ([]byte, error)
	// SetConfig sets the line rate; any buffered partial frame is discarded.
	SetConfig(baudrate int) error
	// ReleaseBus immediately clears the bus-allocated-until throttle.
	ReleaseBus()
	// ClearTxQueueAddr drops any queued telegram addressed to da.
	ClearTxQueueAddr(da byte)
	// Close releases the underlying transport. Subsequent calls error.
	Close() error
}

// Factory constructs a Phy from driver-specific arguments, the way the
// teacher's CAN bus registry builds a Bus from a name and args.
type Factory func(args ...any) (Phy, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// RegisterPHY makes a named Phy implementation available to NewPHY. Intended
// to be called from a driver package's init().
func RegisterPHY(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewPHY constructs a Phy previously registered under name.
func NewPHY(name string, args ...any) (Phy, error) {
	registryMu.Lock()
	factory, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("phy: no driver registered under name %q", name)
	}
	return factory(args...)
}

// busTiming tracks the symbol-time bus-allocation throttle described by the
// PHY contract: a send (and its expected reply) reserves the bus for
// bytes·11·bitTime seconds, during which further sends must wait.
type busTiming struct {
	secPerFrame float64 // seconds per octet, 11 symbols (start+8+parity+stop)
	allocUntil  time.Time
}

func (b *busTiming) setConfig(baudrate int) {
	symLen := 1.0 / float64(baudrate)
	b.secPerFrame = symLen * 11.0
}

func (b *busTiming) canAllocate(now time.Time) bool {
	return !now.Before(b.allocUntil)
}

func (b *busTiming) allocate(now time.Time, nrSendOctets, nrReplyOctets int) {
	seconds := b.secPerFrame * float64(nrSendOctets)
	if nrReplyOctets > 0 {
		seconds += b.secPerFrame * float64(nrReplyOctets)
	}
	b.allocUntil = now.Add(time.Duration(seconds * float64(time.Second)))
}

func (b *busTiming) release(now time.Time) {
	b.allocUntil = now
}

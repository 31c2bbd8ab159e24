package master

import (
	"sync"
	"time"

	"github.com/samsamfire/godpmaster/pkg/dp"
	"github.com/samsamfire/godpmaster/pkg/fdl"
)

// State is one node of the per-slave connection state machine.
type State int

const (
	StateInit State = iota
	StateWDiag
	StateWPrm
	StateWCfg
	StateWDxRdy
	StateDx
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateWDiag:
		return "WDIAG"
	case StateWPrm:
		return "WPRM"
	case StateWCfg:
		return "WCFG"
	case StateWDxRdy:
		return "WDXRDY"
	case StateDx:
		return "DX"
	default:
		return "UNKNOWN"
	}
}

// stateTimeout is the default dwell time per state. When it expires the
// slave falls back to INIT, except in DX, where the timeout counts one fault
// and the slave falls back to WDIAG (see handleTimeout).
var stateTimeout = map[State]time.Duration{
	StateInit:   0, // no timeout; INIT waits indefinitely for a slave reply
	StateWDiag:  1000 * time.Millisecond,
	StateWPrm:   500 * time.Millisecond,
	StateWCfg:   500 * time.Millisecond,
	StateWDxRdy: 1000 * time.Millisecond,
	StateDx:     500 * time.Millisecond,
}

// shortWDxRdyTimeout applies when WDXRDY was entered because the slave
// itself requested diagnostics mid-exchange (DH/RDH).
const shortWDxRdyTimeout = 200 * time.Millisecond

// SlaveConfig is the static, host-supplied description of one slave
// station: everything the master needs in order to register it and build
// its Set_Prm/Chk_Cfg telegrams.
type SlaveConfig struct {
	Address     byte
	IdentNumber uint16
	// InputSize is the size, in bytes, of the data the slave receives from
	// the master (master's pending out-data).
	InputSize int
	// OutputSize is the size, in bytes, of the data the slave sends to the
	// master (Data_Exchange_Con's DU).
	OutputSize int
	SyncMode   bool
	FreezeMode bool
	GroupMask  byte
	WatchdogMs int
	DiagPeriod int
	DPV1       bool
	MinTSDR    byte // 0 => leave Set_Prm's minTSDR field at its zero value
	UserPrmData []byte
	CfgData     []dp.CfgDataElement
}

// Slave is the runtime state for one registered slave station: its static
// config plus the connection state machine, FCB context, pending request
// tracking and the latest I/O data exchanged with the host.
type Slave struct {
	Config SlaveConfig

	state         State
	stateDeadline time.Time
	fcb           fdl.FCB
	faults        FaultDebouncer

	pendingReply     bool
	pendingDeadline  time.Time
	shortAckReceived bool
	rx               []*fdl.Telegram

	dxCount     int
	dxEnteredAt time.Time

	mu           sync.Mutex
	pendingOutData []byte
	latestInData   []byte

	connecting bool
	connected  bool
}

func newSlave(cfg SlaveConfig) *Slave {
	s := &Slave{Config: cfg}
	s.enterState(StateInit, time.Now())
	return s
}

func (s *Slave) enterState(st State, now time.Time) {
	s.state = st
	s.rx = nil
	s.pendingReply = false
	s.shortAckReceived = false
	to := stateTimeout[st]
	if to == 0 {
		s.stateDeadline = time.Time{}
	} else {
		s.stateDeadline = now.Add(to)
	}
	s.mu.Lock()
	s.connecting = st != StateInit && st != StateDx
	s.connected = st == StateDx
	s.mu.Unlock()
	if st == StateDx {
		s.dxEnteredAt = now
	}
	if st == StateInit {
		s.faults.Reset()
		s.fcb = fdl.FCB{} // FCB stays disabled until WDIAG enables it
		s.fcb.Reset()
	}
}

func (s *Slave) timedOut(now time.Time) bool {
	return !s.stateDeadline.IsZero() && now.After(s.stateDeadline)
}

func (s *Slave) pushReply(t *fdl.Telegram) {
	s.rx = append(s.rx, t)
}

func (s *Slave) popReply() *fdl.Telegram {
	if len(s.rx) == 0 {
		return nil
	}
	t := s.rx[0]
	s.rx = s.rx[1:]
	return t
}

// SetOutData stages data to be sent to the slave on its next Data_Exchange_Req.
func (s *Slave) SetOutData(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingOutData = append([]byte(nil), data...)
}

// TakeInData returns and clears the slave's latest received data, or nil if
// nothing new has arrived since the last call.
func (s *Slave) TakeInData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.latestInData
	s.latestInData = nil
	return d
}

func (s *Slave) storeInData(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestInData = data
}

func (s *Slave) takeOutData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.pendingOutData
	s.pendingOutData = nil
	return d
}

func (s *Slave) peekOutData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingOutData
}

// IsConnecting reports whether the slave is anywhere between INIT and DX.
func (s *Slave) IsConnecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

// IsConnected reports whether the slave is currently in DX.
func (s *Slave) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// State returns the slave's current connection state.
func (s *Slave) State() State {
	return s.state
}

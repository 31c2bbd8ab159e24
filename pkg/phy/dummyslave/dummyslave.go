// Package dummyslave provides a mock slave-side PHY used by the master's
// own test suite: it understands just enough of the FDL/DP wire format to
// answer FDL_Stat_Req, Slave_Diag_Req, Set_Prm_Req and Chk_Cfg_Req, and to
// echo Data_Exchange_Req data back inverted, the way a bench PROFIBUS slave
// simulator would.
package dummyslave

import (
	"sync"
	"time"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/internal/fifo"
	"github.com/samsamfire/godpmaster/pkg/dp"
	"github.com/samsamfire/godpmaster/pkg/fdl"
	"github.com/samsamfire/godpmaster/pkg/phy"
)

func init() {
	phy.RegisterPHY("dummyslave", func(args ...any) (phy.Phy, error) {
		if len(args) != 3 {
			return nil, godpmaster.ErrIllegalArgument
		}
		masterAddr, ok1 := args[0].(byte)
		slaveAddr, ok2 := args[1].(byte)
		identNum, ok3 := args[2].(uint16)
		if !ok1 || !ok2 || !ok3 {
			return nil, godpmaster.ErrIllegalArgument
		}
		return New(masterAddr, slaveAddr, identNum), nil
	})
}

// DummySlave implements phy.Phy, simulating a single PROFIBUS slave at the
// far end of the wire.
type DummySlave struct {
	mu sync.Mutex

	masterAddr byte
	slaveAddr  byte
	identNum   uint16

	rx     *fifo.Fifo
	closed bool

	// EchoDX, if true (the default), replies to Data_Exchange_Req by
	// inverting each output byte.
	EchoDX bool
	// EchoDXSize overrides the reply length; 0 means "same as request".
	EchoDXSize int
	// Ready controls whether Slave_Diag_Con reports isReadyDataEx.
	Ready bool
	// RequestDiagOnNextDX makes one Data_Exchange_Con answer DH instead of
	// the normal DL, modeling a slave-triggered diagnosis request.
	RequestDiagOnNextDX bool
	// FailSend, if set, makes SendData return a transient PHY error instead
	// of queuing a reply, modeling a noisy line.
	FailSend bool
}

func New(masterAddr, slaveAddr byte, identNum uint16) *DummySlave {
	return &DummySlave{
		masterAddr: masterAddr,
		slaveAddr:  slaveAddr,
		identNum:   identNum,
		rx:         fifo.NewFifo(4096),
		EchoDX:     true,
		Ready:      true,
	}
}

func (d *DummySlave) SetConfig(baudrate int) error { return nil }
func (d *DummySlave) ReleaseBus()                  {}
func (d *DummySlave) ClearTxQueueAddr(byte)        {}

func (d *DummySlave) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *DummySlave) SendData(telegramData []byte, srd bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return godpmaster.ErrPHYFatal
	}
	if d.FailSend {
		return godpmaster.ErrPHYTransient
	}
	reply := d.respond(telegramData)
	if reply != nil {
		d.rx.Write(reply)
	}
	return nil
}

func (d *DummySlave) PollData(timeout time.Duration) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, godpmaster.ErrPHYFatal
	}
	occupied := d.rx.GetOccupied()
	if occupied == 0 {
		return nil, nil
	}
	peek := make([]byte, occupied)
	d.rx.AltBegin(0)
	got := d.rx.AltRead(peek)
	peek = peek[:got]

	size, err := fdl.SizeFromRaw(peek)
	if err != nil || size > got {
		return nil, nil
	}
	out := make([]byte, size)
	d.rx.Read(out)
	return out, nil
}

// respond decodes one request telegram and builds the matching reply, or
// nil if the request needs no answer (e.g. a malformed frame is dropped).
func (d *DummySlave) respond(raw []byte) []byte {
	req, _, err := fdl.DecodeOne(raw)
	if err != nil {
		return nil
	}
	if req.DA != d.slaveAddr {
		return nil
	}

	reqFunc := req.FC & fdl.FcReqFuncMask
	var reply *fdl.Telegram

	switch {
	case reqFunc == fdl.FcFdlStat:
		reply = &fdl.Telegram{SD: fdl.SD1, DA: req.SA, SA: req.DA, FC: fdl.FcOk | fdl.FcSlave}

	case reqFunc == fdl.FcSrdLo || reqFunc == fdl.FcSrdHi:
		switch {
		case len(req.DAE) > 0:
			// Set_Prm_Req / Chk_Cfg_Req: same function code as Slave_Diag_Req
			// and Data_Exchange_Req, told apart here by the DSAP extension.
			// Both are acknowledged with a short ACK.
			reply = &fdl.Telegram{SD: fdl.SC}

		case len(req.DU) == 0:
			// Slave_Diag_Req carries no payload; FDL_Stat_Req is matched
			// above, so an empty-DU SRD here is the diagnosis poll.
			b1 := dp.B1One
			if !d.Ready {
				b1 |= dp.B1PrmReq
			}
			con := dp.SlaveDiagCon{B1: b1, MasterAddr: d.masterAddr, IdentNumber: d.identNum}
			reply = dp.EncodeSlaveDiagCon(req.SA, req.DA, con, fdl.FcDl)

		default:
			// Data_Exchange_Req.
			fc := byte(fdl.FcDl)
			if d.RequestDiagOnNextDX {
				fc = fdl.FcDh
				d.RequestDiagOnNextDX = false
			}
			data := req.DU
			if d.EchoDX {
				inverted := make([]byte, len(data))
				for i, b := range data {
					inverted[i] = b ^ 0xFF
				}
				data = inverted
			}
			if d.EchoDXSize > 0 {
				data = resize(data, d.EchoDXSize)
			}
			reply = dp.EncodeDataExchangeCon(req.SA, req.DA, data, fc)
		}
	}

	if reply == nil {
		return nil
	}
	out, err := fdl.Encode(reply)
	if err != nil {
		return nil
	}
	return out
}

func resize(data []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, data)
	return out
}

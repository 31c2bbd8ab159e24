package master

import (
	"time"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/pkg/dp"
	"github.com/samsamfire/godpmaster/pkg/fdl"
)

// tick advances one slave's connection state machine by at most one send.
// It consumes any reply queued since the last tick (pushed by the master's
// dispatch loop) and reports whether the slave moved or faulted.
func (s *Slave) tick(m *Master, now time.Time) error {
	reply := s.popReply()

	if s.pendingReply && reply == nil && !s.shortAckReceived && !s.timedOut(now) {
		return nil // still waiting, nothing to do this tick
	}

	if reply != nil || s.shortAckReceived {
		s.pendingReply = false
	} else if s.timedOut(now) {
		return s.handleTimeout(m, now)
	}

	switch s.state {
	case StateInit:
		return s.tickInit(m, now, reply)
	case StateWDiag:
		return s.tickWDiag(m, now, reply)
	case StateWPrm:
		return s.tickWPrm(m, now, reply)
	case StateWCfg:
		return s.tickWCfg(m, now, reply)
	case StateWDxRdy:
		return s.tickWDxRdy(m, now, reply)
	case StateDx:
		return s.tickDx(m, now, reply)
	}
	return nil
}

func (s *Slave) handleTimeout(m *Master, now time.Time) error {
	if s.state == StateDx {
		s.faults.Fault()
		s.enterState(StateWDiag, now)
		return godpmaster.ErrTimeout
	}
	s.enterState(StateInit, now)
	return godpmaster.ErrTimeout
}

func (s *Slave) tickInit(m *Master, now time.Time, reply *fdl.Telegram) error {
	if reply != nil {
		if dp.IsSlaveStationReply(reply) {
			s.enterState(StateWDiag, now)
		}
		return nil
	}
	if s.pendingReply {
		return nil
	}
	req := dp.EncodeFdlStatReq(s.Config.Address, m.masterAddr)
	return m.sendRequest(s, req, now)
}

func (s *Slave) tickWDiag(m *Master, now time.Time, reply *fdl.Telegram) error {
	if reply != nil {
		con, err := dp.DecodeSlaveDiagCon(reply)
		if err != nil {
			s.faults.Fault()
			return err
		}
		s.enterState(StateWPrm, now)
		_ = con
		return nil
	}
	if s.pendingReply {
		return nil
	}
	s.fcb.Enable()
	req := dp.EncodeSlaveDiagReq(s.Config.Address, m.masterAddr)
	return m.sendRequest(s, req, now)
}

func (s *Slave) tickWPrm(m *Master, now time.Time, reply *fdl.Telegram) error {
	if s.shortAckReceived {
		s.fcb.HandleReply()
		s.enterState(StateWCfg, now)
		return nil
	}
	if s.pendingReply {
		return nil
	}
	fact1, fact2, _ := EncodeWatchdog(s.Config.WatchdogMs)
	status := byte(0)
	if s.Config.WatchdogMs > 0 {
		status |= dp.PrmWd
	}
	if s.Config.SyncMode {
		status |= dp.PrmSync
	}
	if s.Config.FreezeMode {
		status |= dp.PrmFreeze
	}
	minTSDR := s.Config.MinTSDR
	fields := dp.SetPrmFields{
		StationStatus: status,
		WdFact1:       fact1,
		WdFact2:       fact2,
		MinTSDR:       minTSDR,
		IdentNumber:   s.Config.IdentNumber,
		GroupIdent:    s.Config.GroupMask,
		UserPrmData:   s.Config.UserPrmData,
	}
	req := dp.EncodeSetPrmReq(s.Config.Address, m.masterAddr, fields)
	return m.sendRequest(s, req, now)
}

func (s *Slave) tickWCfg(m *Master, now time.Time, reply *fdl.Telegram) error {
	if s.shortAckReceived {
		s.fcb.HandleReply()
		s.enterState(StateWDxRdy, now)
		return nil
	}
	if s.pendingReply {
		return nil
	}
	req := dp.EncodeChkCfgReq(s.Config.Address, m.masterAddr, s.Config.CfgData)
	return m.sendRequest(s, req, now)
}

func (s *Slave) tickWDxRdy(m *Master, now time.Time, reply *fdl.Telegram) error {
	if reply != nil {
		con, err := dp.DecodeSlaveDiagCon(reply)
		if err != nil {
			s.faults.Fault()
			return err
		}
		if con.IsReadyDataEx() {
			s.enterState(StateDx, now)
			return nil
		}
		if con.NeedsNewPrmCfg() {
			s.enterState(StateInit, now)
			return nil
		}
		if con.HasFault() {
			s.faults.Fault()
			if s.faults.Value() >= 5 {
				s.enterState(StateInit, now)
			}
		} else {
			s.faults.Ok()
		}
		return nil
	}
	if s.pendingReply {
		return nil
	}
	req := dp.EncodeSlaveDiagReq(s.Config.Address, m.masterAddr)
	return m.sendRequest(s, req, now)
}

func (s *Slave) tickDx(m *Master, now time.Time, reply *fdl.Telegram) (err error) {
	if reply != nil {
		err = s.handleDxReply(m, now, reply)
		if s.state != StateDx {
			return err // handleDxReply already transitioned away
		}
		if s.faults.Value() >= 5 {
			s.enterState(StateInit, now)
			return err
		}
		elapsed := now.Sub(s.dxEnteredAt)
		if s.faults.Value() >= 3 && (elapsed >= 200*time.Millisecond || s.Config.OutputSize == 0) {
			s.enterState(StateWDxRdy, now)
			return err
		}
	}
	if s.pendingReply {
		return err
	}
	if s.Config.DiagPeriod > 0 && s.dxCount >= s.Config.DiagPeriod {
		s.dxCount = 0
		s.enterState(StateWDxRdy, now)
		return err
	}

	data := s.peekOutData()
	if len(data) == 0 && s.Config.InputSize > 0 {
		data = make([]byte, s.Config.InputSize)
	}
	req := dp.EncodeDataExchangeReq(s.Config.Address, m.masterAddr, data)
	sendErr := m.sendRequest(s, req, now)
	if sendErr == nil && s.Config.InputSize > 0 {
		s.takeOutData()
	}
	s.dxCount++
	if sendErr != nil && s.faults.Value() >= 5 {
		s.enterState(StateInit, now)
	}
	if err == nil {
		err = sendErr
	}
	return err
}

func (s *Slave) handleDxReply(m *Master, now time.Time, reply *fdl.Telegram) error {
	if s.Config.OutputSize == 0 {
		if reply.SD != fdl.SC {
			s.faults.Fault()
			return godpmaster.ErrProtocolSemantic
		}
		s.faults.Ok()
		return nil
	}

	con := dp.DecodeDataExchangeCon(reply)
	if con.ServiceNotActive() {
		s.enterState(StateInit, now)
		return godpmaster.ErrProtocolSemantic
	}
	if len(con.Data) != s.Config.OutputSize {
		s.faults.Fault()
		return godpmaster.ErrLengthMismatch
	}
	s.storeInData(con.Data)
	s.faults.Ok()

	if con.RequestsDiag() {
		s.enterState(StateWDxRdy, now)
		s.stateDeadline = now.Add(shortWDxRdyTimeout)
		return nil
	}
	return nil
}

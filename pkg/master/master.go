// Package master implements the per-slave connection state machine and the
// round-robin scheduler that drives a PROFIBUS-DP class-1 master session.
package master

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/pkg/dp"
	"github.com/samsamfire/godpmaster/pkg/fdl"
	"github.com/samsamfire/godpmaster/pkg/phy"
)

const pollTimeout = 10 * time.Millisecond

// Master is the PROFIBUS-DP class-1 master engine: a round-robin scheduler
// over registered slaves, each driven by its own connection state machine.
type Master struct {
	masterAddr byte
	tr         *fdl.Transceiver

	mu     sync.Mutex
	slaves map[byte]*Slave
	order  []byte

	mcastFCB fdl.FCB

	backoffK     int
	backoffUntil time.Time

	log *logrus.Entry
}

// New builds a Master bound to masterAddr, sending/receiving through p.
func New(masterAddr byte, p phy.Phy, log *logrus.Entry) *Master {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &Master{
		masterAddr: masterAddr,
		tr:         fdl.NewTransceiver(p),
		slaves:     map[byte]*Slave{},
		backoffK:   1,
		log:        log.WithField("component", "MASTER"),
	}
	m.mcastFCB.Enable()
	m.mcastFCB.Reset()
	return m
}

// AddSlave registers a new slave station. It is an error to register the
// same address twice.
func (m *Master) AddSlave(cfg SlaveConfig) (*Slave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.slaves[cfg.Address]; exists {
		return nil, fmt.Errorf("master: slave address %d already registered: %w", cfg.Address, godpmaster.ErrConfigInvalid)
	}
	s := newSlave(cfg)
	m.slaves[cfg.Address] = s
	m.order = append(m.order, cfg.Address)
	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })
	m.updateRXFilter()
	return s, nil
}

func (m *Master) updateRXFilter() {
	das := make([]byte, 0, len(m.order)+1)
	das = append(das, m.masterAddr)
	m.tr.SetRXFilter(das)
}

// Slave looks up a registered slave by address.
func (m *Master) Slave(addr byte) (*Slave, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slaves[addr]
	return s, ok
}

// SetMasterOutData stages output data for a registered slave.
func (m *Master) SetMasterOutData(addr byte, data []byte) error {
	s, ok := m.Slave(addr)
	if !ok {
		return fmt.Errorf("master: unknown slave %d: %w", addr, godpmaster.ErrConfigInvalid)
	}
	if len(data) != s.Config.InputSize {
		return fmt.Errorf("master: slave %d expects %d input bytes, got %d: %w", addr, s.Config.InputSize, len(data), godpmaster.ErrConfigInvalid)
	}
	s.SetOutData(data)
	return nil
}

// GetMasterInData returns and clears a registered slave's latest input data.
func (m *Master) GetMasterInData(addr byte) ([]byte, error) {
	s, ok := m.Slave(addr)
	if !ok {
		return nil, fmt.Errorf("master: unknown slave %d: %w", addr, godpmaster.ErrConfigInvalid)
	}
	return s.TakeInData(), nil
}

// IsConnecting reports whether any registered slave is still connecting.
func (m *Master) IsConnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slaves {
		if s.IsConnecting() {
			return true
		}
	}
	return false
}

// IsConnected reports whether every registered slave has reached DX.
func (m *Master) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.slaves) == 0 {
		return false
	}
	for _, s := range m.slaves {
		if !s.IsConnected() {
			return false
		}
	}
	return true
}

// SyncMode transmits Global_Control Sync/Unsync to groupSelect (0 = all).
func (m *Master) SyncMode(groupSelect byte, enable bool) error {
	ccmd := dp.CcmdUnsync
	if enable {
		ccmd = dp.CcmdSync
	}
	return m.sendGlobalControl(groupSelect, ccmd)
}

// FreezeMode transmits Global_Control Freeze/Unfreeze to groupSelect.
func (m *Master) FreezeMode(groupSelect byte, enable bool) error {
	ccmd := dp.CcmdUnfreeze
	if enable {
		ccmd = dp.CcmdFreeze
	}
	return m.sendGlobalControl(groupSelect, ccmd)
}

// Cancel clears sync/freeze for groupSelect via Global_Control.
func (m *Master) Cancel(groupSelect byte) error {
	return m.sendGlobalControl(groupSelect, dp.CcmdClear)
}

func (m *Master) sendGlobalControl(groupSelect, ccmd byte) error {
	t := dp.EncodeGlobalControl(m.masterAddr, groupSelect, ccmd)
	return m.tr.Send(&m.mcastFCB, t)
}

// Run drives the engine until ctx is cancelled.
func (m *Master) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := m.Tick(); err != nil {
			m.log.WithError(err).Debug("tick")
		}
	}
}

// Tick runs one scheduler pass: poll/dispatch, then advance at most one
// slave's state machine. It returns the slave serviced this pass, if any.
func (m *Master) Tick() (*Slave, error) {
	now := time.Now()
	if err := m.pollAndDispatch(now); err != nil {
		return nil, err
	}

	if now.Before(m.backoffUntil) {
		return nil, nil
	}

	s := m.nextSlave()
	if s == nil {
		return nil, nil
	}
	err := s.tick(m, now)
	return s, err
}

func (m *Master) pollAndDispatch(now time.Time) error {
	ok, t, err := m.tr.Poll(pollTimeout)
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}

	switch {
	case t.SD == fdl.SD4:
		// token telegram; single-master operation never passes the token on.
		return nil
	case t.SD == fdl.SC:
		m.mu.Lock()
		for _, s := range m.slaves {
			s.shortAckReceived = true
		}
		m.mu.Unlock()
		return nil
	case t.DA == fdl.AddressMcast:
		m.log.Debug("multicast telegram received, ignored")
		return nil
	case !ok:
		m.log.WithField("da", t.DA).Debug("telegram discarded: not addressed to this master")
		return nil
	case t.DA == m.masterAddr:
		s, found := m.Slave(t.SA)
		if !found {
			m.log.WithField("sa", t.SA).Warn("reply from unregistered slave")
			return nil
		}
		s.pushReply(t)
		s.fcb.HandleReply()
		return nil
	default:
		m.log.WithField("da", t.DA).Warn("telegram discarded: unexpected destination")
		return nil
	}
}

func (m *Master) nextSlave() *Slave {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil
	}
	addr := m.order[0]
	m.order = append(m.order[1:], addr)
	return m.slaves[addr]
}

// sendRequest transmits req on behalf of s, arming its pending-reply
// deadline and applying the master's back-off policy on transient PHY
// errors.
func (m *Master) sendRequest(s *Slave, req *fdl.Telegram, now time.Time) error {
	err := m.tr.Send(&s.fcb, req)
	if err != nil {
		s.faults.Fault()
		m.backoff(now)
		return err
	}
	m.resetBackoff()
	s.pendingReply = true
	to := stateTimeout[s.state]
	if to == 0 {
		to = 1000 * time.Millisecond
	}
	s.pendingDeadline = now.Add(to)
	return nil
}

func (m *Master) backoff(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoffUntil = now.Add(time.Duration(m.backoffK) * 10 * time.Millisecond)
	if m.backoffK < 10 {
		m.backoffK *= 2
		if m.backoffK > 10 {
			m.backoffK = 10
		}
	}
}

func (m *Master) resetBackoff() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoffK = 1
}

package fdl

import (
	"time"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/pkg/phy"
)

// srdFunctions are request function codes that expect a reply telegram.
var srdFunctions = map[byte]bool{
	FcSrdLo: true, FcSrdHi: true,
	FcSdaLo: true, FcSdaHi: true,
	FcDdb: true, FcFdlStat: true, FcIdent: true, FcLsap: true,
}

// Transceiver turns a Phy's raw byte stream into framed Telegrams, applying
// the RX address filter and handing FCB advancement to the caller.
type Transceiver struct {
	phy    phy.Phy
	filter map[byte]bool // nil => accept all
}

func NewTransceiver(p phy.Phy) *Transceiver {
	return &Transceiver{phy: p}
}

// SetRXFilter restricts Poll to only return telegrams addressed to one of
// das. A nil/empty slice accepts everything.
func (tr *Transceiver) SetRXFilter(das []byte) {
	if len(das) == 0 {
		tr.filter = nil
		return
	}
	tr.filter = make(map[byte]bool, len(das))
	for _, da := range das {
		tr.filter[da] = true
	}
}

// Poll asks the PHY for one frame and decodes it. ok is false when a
// telegram was decoded but fails the RX address filter (still returned, so
// the caller can log or count it). SC frames carry no address and always
// pass the filter.
func (tr *Transceiver) Poll(timeout time.Duration) (ok bool, t *Telegram, err error) {
	raw, err := tr.phy.PollData(timeout)
	if err != nil {
		return false, nil, err
	}
	if raw == nil {
		return false, nil, nil
	}
	telegram, _, err := DecodeOne(raw)
	if err != nil {
		return false, nil, err
	}
	if tr.filter != nil && hasAddress(telegram) && !tr.filter[telegram.DA] {
		return false, telegram, nil
	}
	return true, telegram, nil
}

func hasAddress(t *Telegram) bool {
	return t.SD != SC
}

// Send encodes t, applying FCB discipline as described by the FDL
// transceiver contract: SRD requests arm handleReply on the next accepted
// reply; SDN (no-ack) sends advance the bit immediately.
func (tr *Transceiver) Send(fcb *FCB, t *Telegram) error {
	isReq := t.FC&FcReq != 0
	reqFunc := t.FC & FcReqFuncMask

	if isReq && fcb.Enabled() {
		if srdFunctions[reqFunc] {
			t.FC = fcb.Apply(t.FC)
			fcb.SetWaitingReply()
		} else {
			t.FC = fcb.Apply(t.FC)
			fcb.Next()
		}
	}

	raw, err := Encode(t)
	if err != nil {
		return err
	}
	expectReply := isReq && srdFunctions[reqFunc]
	if sendErr := tr.phy.SendData(raw, expectReply); sendErr != nil {
		return godpmaster.ErrPHYTransient
	}
	return nil
}

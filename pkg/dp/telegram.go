package dp

import (
	"github.com/samsamfire/godpmaster/pkg/fdl"
)

// CfgDataElement is one entry of a Chk_Cfg_Req's configuration data.
type CfgDataElement struct {
	Identifier  byte
	LengthBytes []byte
}

func (e CfgDataElement) idType() byte { return e.Identifier & IDTypeMask }

func (e CfgDataElement) encode() []byte {
	out := []byte{e.Identifier}
	if e.idType() == IDTypeSpec {
		out = append(out, e.LengthBytes...)
	}
	return out
}

func decodeCfgDataElements(buf []byte) ([]CfgDataElement, error) {
	var elems []CfgDataElement
	for i := 0; i < len(buf); {
		id := buf[i]
		i++
		n := 0
		if id&IDTypeMask == IDTypeSpec {
			n = int(id & 0x0F)
		}
		if i+n > len(buf) {
			return nil, fmtErrMalformedCfg()
		}
		elems = append(elems, CfgDataElement{Identifier: id, LengthBytes: append([]byte(nil), buf[i:i+n]...)})
		i += n
	}
	return elems, nil
}

// SlaveDiagCon is the decoded content of a Slave_Diag_Con telegram.
type SlaveDiagCon struct {
	B0, B1, B2  byte
	MasterAddr  byte
	IdentNumber uint16
	ExtDiag     []byte
}

// IsReadyDataEx reports whether the slave's diagnosis allows entering DX.
func (c *SlaveDiagCon) IsReadyDataEx() bool {
	return c.B0&(B0NotExist|B0NotReady|B0CfgFault|B0PrmFault) == 0 && c.B1&B1PrmReq == 0
}

// NeedsNewPrmCfg reports whether the slave demands a fresh Set_Prm/Chk_Cfg.
func (c *SlaveDiagCon) NeedsNewPrmCfg() bool {
	return c.B0&(B0CfgFault|B0PrmFault) != 0 || c.B1&B1PrmReq != 0
}

// HasFault reports the non-transition diagnostic bits tallied by the fault
// debouncer while waiting in WDXRDY (not-exist, cfg-fault, prm-fault,
// prm-req, not-supported, master-lock, ext-diag, or a slave that never set
// its mandatory "always one" bit).
func (c *SlaveDiagCon) HasFault() bool {
	return c.B0&(B0NotExist|B0CfgFault|B0PrmFault|B0NotSupp|B0MasterLock|B0ExtDiag) != 0 ||
		c.B1&B1PrmReq != 0 ||
		c.B1&B1One == 0
}

// DecodeSlaveDiagCon decodes the DU of an SD2 telegram as a Slave_Diag_Con.
func DecodeSlaveDiagCon(f *fdl.Telegram) (*SlaveDiagCon, error) {
	if len(f.DU) < 6 {
		return nil, fmtErrShort("Slave_Diag_Con")
	}
	return &SlaveDiagCon{
		B0:          f.DU[0],
		B1:          f.DU[1],
		B2:          f.DU[2],
		MasterAddr:  f.DU[3],
		IdentNumber: uint16(f.DU[4])<<8 | uint16(f.DU[5]),
		ExtDiag:     append([]byte(nil), f.DU[6:]...),
	}, nil
}

// EncodeSlaveDiagCon builds the FDL telegram for a Slave_Diag_Con reply,
// addressed back to the master (da) from the slave (sa). fc is the
// non-request response function code (typically FcDl).
func EncodeSlaveDiagCon(da, sa byte, c SlaveDiagCon, fc byte) *fdl.Telegram {
	du := make([]byte, 0, 6+len(c.ExtDiag))
	du = append(du, c.B0, c.B1, c.B2, c.MasterAddr,
		byte(c.IdentNumber>>8), byte(c.IdentNumber))
	du = append(du, c.ExtDiag...)
	return &fdl.Telegram{SD: sdForDU(len(du)), DA: da, SA: sa, FC: fc, DU: du}
}

// EncodeDataExchangeCon builds the FDL telegram for a Data_Exchange_Con
// reply carrying the slave's input data. fc is the non-request response
// function code (FcDl normally, FcDh to request diagnostics, FcRs fatal).
func EncodeDataExchangeCon(da, sa byte, data []byte, fc byte) *fdl.Telegram {
	return &fdl.Telegram{SD: sdForDU(len(data)), DA: da, SA: sa, FC: fc, DU: data}
}

// EncodeSlaveDiagReq builds the FDL telegram for a Slave_Diag_Req. It carries
// no payload and no address extension; its function code is shared with
// Set_Prm_Req, Chk_Cfg_Req and Data_Exchange_Req, so a receiver tells it
// apart by the empty data unit. FCB bits are applied later, by the
// transceiver's Send.
func EncodeSlaveDiagReq(da, sa byte) *fdl.Telegram {
	fc := fdl.FcReq | fdl.FcSrdHi
	return &fdl.Telegram{SD: fdl.SD1, DA: da, SA: sa, FC: fc}
}

// EncodeFdlStatReq builds an FDL_Stat_Req, used while a slave is in INIT.
// FCB is never applied to this request.
func EncodeFdlStatReq(da, sa byte) *fdl.Telegram {
	return &fdl.Telegram{SD: fdl.SD1, DA: da, SA: sa, FC: fdl.FcReq | fdl.FcFdlStat}
}

// IsSlaveStationReply reports whether f is a non-request reply identifying
// the peer as a slave station (the expected FDL_Stat_Con while in INIT).
func IsSlaveStationReply(f *fdl.Telegram) bool {
	if f.FC&fdl.FcReq != 0 {
		return false
	}
	return f.FC&fdl.FcStypeMask == fdl.FcSlave
}

// SetPrmFields are the fields encoded into a Set_Prm_Req's data unit.
type SetPrmFields struct {
	StationStatus byte
	WdFact1       byte
	WdFact2       byte
	MinTSDR       byte
	IdentNumber   uint16
	GroupIdent    byte
	UserPrmData   []byte
}

// EncodeSetPrmReq builds the FDL telegram for a Set_Prm_Req, carrying the
// DSAP/SSAP address extension that distinguishes it on the wire from
// Slave_Diag_Req and Data_Exchange_Req, which share its function code.
func EncodeSetPrmReq(da, sa byte, f SetPrmFields) *fdl.Telegram {
	du := make([]byte, 0, 7+len(f.UserPrmData))
	du = append(du, f.StationStatus, f.WdFact1, f.WdFact2, f.MinTSDR,
		byte(f.IdentNumber>>8), byte(f.IdentNumber), f.GroupIdent)
	du = append(du, f.UserPrmData...)
	fc := fdl.FcReq | fdl.FcSrdHi
	dae := []fdl.AddrExt{{Value: DsapSetPrm}}
	sae := []fdl.AddrExt{{Value: SsapMs0}}
	return &fdl.Telegram{SD: sdForDU(len(du) + len(dae) + len(sae)), DA: da, SA: sa, FC: fc, DAE: dae, SAE: sae, DU: du}
}

// EncodeChkCfgReq builds the FDL telegram for a Chk_Cfg_Req. Like
// Set_Prm_Req it carries a DSAP/SSAP address extension (Set_Prm_Req and
// Chk_Cfg_Req share Slave_Diag_Req and Data_Exchange_Req's request function
// code, so this is what lets a receiver tell them apart).
func EncodeChkCfgReq(da, sa byte, elems []CfgDataElement) *fdl.Telegram {
	var du []byte
	for _, e := range elems {
		du = append(du, e.encode()...)
	}
	fc := fdl.FcReq | fdl.FcSrdHi
	dae := []fdl.AddrExt{{Value: DsapChkCfg}}
	sae := []fdl.AddrExt{{Value: SsapMs0}}
	return &fdl.Telegram{SD: sdForDU(len(du) + len(dae) + len(sae)), DA: da, SA: sa, FC: fc, DAE: dae, SAE: sae, DU: du}
}

// DataExchangeCon is the decoded content of a Data_Exchange_Con telegram.
type DataExchangeCon struct {
	Data []byte
	FC   byte
}

// RequestsDiag reports the slave signaling DH/RDH ("data high", further
// diagnosis available) on a Data_Exchange_Con.
func (c *DataExchangeCon) RequestsDiag() bool {
	f := c.FC & fdl.FcResFuncMask
	return f == fdl.FcDh || f == fdl.FcRdh
}

// ServiceNotActive reports the slave replying RS (service not active), a
// fatal condition for the slave's connection.
func (c *DataExchangeCon) ServiceNotActive() bool {
	return c.FC&fdl.FcResFuncMask == fdl.FcRs
}

// DecodeDataExchangeCon decodes the DU of a Data_Exchange_Con telegram.
func DecodeDataExchangeCon(f *fdl.Telegram) *DataExchangeCon {
	return &DataExchangeCon{Data: append([]byte(nil), f.DU...), FC: f.FC}
}

// EncodeDataExchangeReq builds the FDL telegram carrying cyclic output data.
func EncodeDataExchangeReq(da, sa byte, data []byte) *fdl.Telegram {
	fc := fdl.FcReq | fdl.FcSrdHi
	return &fdl.Telegram{SD: sdForDU(len(data)), DA: da, SA: sa, FC: fc, DU: data}
}

// EncodeGlobalControl builds a broadcast/group Global_Control telegram. FCB
// bits are applied later by the transceiver's Send when the FCB context is
// enabled; since SDN telegrams are not acknowledged, Send advances the bit
// right away instead of waiting for a reply.
func EncodeGlobalControl(sa, groupSelect, ccmd byte) *fdl.Telegram {
	du := []byte{ccmd, groupSelect}
	fc := fdl.FcReq | fdl.FcSdnHi
	return &fdl.Telegram{SD: sdForDU(len(du)), DA: fdl.AddressMcast, SA: sa, FC: fc, DU: du}
}

func sdForDU(n int) byte {
	switch {
	case n == 0:
		return fdl.SD1
	case n == 8:
		return fdl.SD3
	default:
		return fdl.SD2
	}
}

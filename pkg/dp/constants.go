// Package dp implements the PROFIBUS-DP application layer: encoding and
// decoding of the Slave_Diag, Set_Prm, Chk_Cfg, Data_Exchange and
// Global_Control services on top of an FDL telegram.
package dp

// Service access points used by DP class-1 master/slave exchanges.
const (
	SsapMs0         byte = 62
	DsapSlaveDiag   byte = 60
	DsapSetPrm      byte = 61
	DsapChkCfg      byte = 62
	DsapGetCfg      byte = 59
	DsapGlobalCtrl  byte = 58
	DsapSetSlaveAdr byte = 55
)

// Slave_Diag_Con status byte 0 bits.
const (
	B0NotExist             byte = 0x01
	B0NotReady             byte = 0x02
	B0CfgFault             byte = 0x04
	B0ExtDiag              byte = 0x08
	B0NotSupp              byte = 0x10
	B0InvalidSlaveResponse byte = 0x20
	B0PrmFault             byte = 0x40
	B0MasterLock           byte = 0x80
)

// Slave_Diag_Con status byte 1 bits. Prm_Req lives here, not on byte 0.
const (
	B1PrmReq   byte = 0x01
	B1StatDiag byte = 0x02
	B1One      byte = 0x04 // always set by a conformant slave
	B1WdOn     byte = 0x08
	B1FreezeOn byte = 0x10
	B1SyncOn   byte = 0x20
	B1Res      byte = 0x40
	B1Deact    byte = 0x80
)

// Slave_Diag_Con status byte 2 bits.
const (
	B2ExtDiagOverflow byte = 0x80
)

// Set_Prm station-status bits.
const (
	PrmWd     byte = 0x08
	PrmFreeze byte = 0x10
	PrmSync   byte = 0x20
	PrmUnlock byte = 0x40
	PrmLock   byte = 0x80
)

// Config data element identifier layout.
const (
	IDTypeMask byte = 0x30
	IDTypeSpec byte = 0x00
	IDTypeIn   byte = 0x10
	IDTypeOut  byte = 0x20
	IDTypeBoth byte = 0x30
)

// Global_Control command bits.
const (
	CcmdClear   byte = 0x02
	CcmdUnfreeze byte = 0x04
	CcmdFreeze  byte = 0x08
	CcmdUnsync  byte = 0x10
	CcmdSync    byte = 0x20
)

// Global_Control group-select values.
const (
	GselBroadcast byte = 0x00
)

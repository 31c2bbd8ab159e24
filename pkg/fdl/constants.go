package fdl

// Start delimiters identify the shape of an FDL frame on the wire.
const (
	SD1 byte = 0x10 // fixed length, no data unit
	SD2 byte = 0x68 // variable length, LE repeated
	SD3 byte = 0xA2 // fixed 8-byte data unit
	SD4 byte = 0xDC // token telegram
	SC  byte = 0xE5 // short acknowledge, single byte
)

// ED is the end delimiter terminating every frame except SC.
const ED byte = 0x16

// Address field layout. The high bit of DA/SA signals that an address
// extension (DAE/SAE) chain is present ahead of the data unit.
const (
	AddressMask     byte = 0x7F
	AddressExt      byte = 0x80
	AddressMcast    byte = 127
	AddressSegment  byte = 0x40
	AddressSapMask  byte = 0x3F
)

// Function code layout (FC byte).
const (
	FcReq        byte = 0x40
	FcFcv        byte = 0x10
	FcFcb        byte = 0x20
	FcReqFuncMask byte = 0x0F
	FcResFuncMask byte = 0x0F
	FcStypeMask  byte = 0x30
)

// Request function codes (FC & FcReqFuncMask, when FcReq is set).
const (
	FcSdaLo   byte = 0x03 // send data with ack, low prio
	FcSdnLo   byte = 0x04 // send data no ack, low prio
	FcSdaHi   byte = 0x05 // send data with ack, high prio
	FcSdnHi   byte = 0x06 // send data no ack, high prio
	FcDdb     byte = 0x07 // request diagnostics
	FcFdlStat byte = 0x09 // request FDL status
	FcSrdLo   byte = 0x0C // send and request data, low prio
	FcSrdHi   byte = 0x0D // send and request data, high prio
	FcIdent   byte = 0x0E // request ident
	FcLsap    byte = 0x0F // request LSAP status
)

// Response function codes (FC & FcResFuncMask, when FcReq is clear).
const (
	FcOk  byte = 0x00 // positive ack, no data
	FcUe  byte = 0x01 // ack, user error
	FcRr  byte = 0x02 // no resources
	FcRs  byte = 0x03 // service not active
	FcDl  byte = 0x08 // data low, no further message
	FcNr  byte = 0x09 // no response / not ready
	FcDh  byte = 0x0A // data high, further message available
	FcRdl byte = 0x0C // data low, resource error
	FcRdh byte = 0x0D // data high, resource error
)

// Station type (FC & FcStypeMask) carried in a non-request reply.
const (
	FcSlave byte = 0x00
	FcMnrdy byte = 0x10 // master, not ready to enter token ring
	FcMrdy  byte = 0x20 // master, ready, without token
	FcMtr   byte = 0x30 // master, ready, with token
)

// MaxDataUnit is the largest DU payload an SD2 telegram can carry (246 bytes
// of pure user data after accounting for address-extension chains).
const MaxDataUnit = 246

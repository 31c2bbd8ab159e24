package godpmaster

import "errors"

// Error taxonomy for the DP master core. Each is a distinct sentinel, not an
// exception class; callers use errors.Is.
var (
	// FrameFormat: SD unknown, LE mismatch, bad FCS, wrong ED, length out of range.
	ErrFrameFormat = errors.New("fdl: malformed frame")
	// AddressExt: DAE/SAE chain truncated or malformed.
	ErrAddressExt = errors.New("fdl: malformed address extension")
	// NeedMore: not enough bytes buffered yet to determine or decode a frame.
	ErrNeedMore = errors.New("fdl: need more data")
	// TelegramDispatch: DP layer cannot dispatch an incoming telegram.
	ErrTelegramDispatch = errors.New("dp: cannot dispatch telegram")
	// Timeout: pending-request deadline exceeded.
	ErrTimeout = errors.New("master: request timed out")
	// ProtocolSemantic: Data_Exchange_Con reports RS (service not active).
	ErrProtocolSemantic = errors.New("dp: service not active")
	// LengthMismatch: received DX data length != configured outputSize.
	ErrLengthMismatch = errors.New("master: data exchange length mismatch")
	// PHYTransient: transmit error from PHY, recoverable via back-off.
	ErrPHYTransient = errors.New("phy: transient transmit error")
	// PHYFatal: PHY handle closed or non-recoverable.
	ErrPHYFatal = errors.New("phy: fatal, closed")
	// ConfigInvalid: bad GSD, bad watchdog, duplicate address, etc.
	ErrConfigInvalid = errors.New("master: invalid configuration")
	// IllegalArgument: plain bad arguments to a constructor or setter.
	ErrIllegalArgument = errors.New("illegal argument")
)

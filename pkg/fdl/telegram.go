// Package fdl implements the PROFIBUS Fieldbus Data Link layer: the SD1/SD2/
// SD3/SD4/SC telegram codec and the frame-count-bit (FCB) transmission
// discipline that rides on top of it.
package fdl

import (
	"fmt"

	godpmaster "github.com/samsamfire/godpmaster"
)

// AddrExt is one element of a chained address extension (DAE or SAE).
type AddrExt struct {
	Segment bool // true: segment address, false: SAP number
	Value   byte // low 6 bits
}

// Telegram is a tagged union over the five FDL frame shapes. Only the fields
// relevant to SD identify a meaningful value; callers branch on SD.
type Telegram struct {
	SD byte

	DA, SA byte // 7-bit addresses, extension bit is derived from DAE/SAE
	FC     byte

	DAE []AddrExt
	SAE []AddrExt
	DU  []byte
}

func (t *Telegram) String() string {
	return fmt.Sprintf("Telegram{SD=%#02x DA=%d SA=%d FC=%#02x DU=% x}", t.SD, t.DA, t.SA, t.FC, t.DU)
}

func encodeAE(chain []AddrExt) []byte {
	out := make([]byte, 0, len(chain))
	for i, ae := range chain {
		b := ae.Value & AddressSapMask
		if ae.Segment {
			b |= AddressSegment
		}
		if i != len(chain)-1 {
			b |= AddressExt
		}
		out = append(out, b)
	}
	return out
}

func decodeAE(buf []byte) (chain []AddrExt, consumed int, err error) {
	for {
		if consumed >= len(buf) {
			return nil, 0, godpmaster.ErrAddressExt
		}
		b := buf[consumed]
		chain = append(chain, AddrExt{
			Segment: b&AddressSegment != 0,
			Value:   b & AddressSapMask,
		})
		consumed++
		if b&AddressExt == 0 {
			return chain, consumed, nil
		}
	}
}

func checksum(buf []byte) byte {
	var sum byte
	for _, b := range buf {
		sum += b
	}
	return sum
}

// Encode serializes a Telegram into its on-wire byte representation.
func Encode(t *Telegram) ([]byte, error) {
	switch t.SD {
	case SC:
		return []byte{SC}, nil
	case SD4:
		return []byte{SD4, t.DA, t.SA}, nil
	case SD1, SD2, SD3:
		// fall through to common body encoding below
	default:
		return nil, godpmaster.ErrFrameFormat
	}

	da := t.DA & AddressMask
	sa := t.SA & AddressMask
	if len(t.DAE) > 0 {
		da |= AddressExt
	}
	if len(t.SAE) > 0 {
		sa |= AddressExt
	}

	body := make([]byte, 0, 3+len(t.DAE)+len(t.SAE)+len(t.DU))
	body = append(body, da, sa, t.FC)
	body = append(body, encodeAE(t.DAE)...)
	body = append(body, encodeAE(t.SAE)...)
	body = append(body, t.DU...)

	switch t.SD {
	case SD1:
		if len(body) != 3 {
			return nil, godpmaster.ErrFrameFormat
		}
	case SD3:
		if len(body) != 3+8 {
			return nil, godpmaster.ErrFrameFormat
		}
	case SD2:
		if len(body)-3 > MaxDataUnit {
			return nil, godpmaster.ErrFrameFormat
		}
	}

	fcs := checksum(body)

	var out []byte
	if t.SD == SD2 {
		le := byte(len(body))
		out = make([]byte, 0, 4+len(body)+2)
		out = append(out, SD2, le, le, SD2)
	} else {
		out = make([]byte, 0, 1+len(body)+2)
		out = append(out, t.SD)
	}
	out = append(out, body...)
	out = append(out, fcs, ED)
	return out, nil
}

// SizeFromRaw inspects the leading bytes of buf and returns the total frame
// size once it can be determined, godpmaster.ErrNeedMore if more bytes must
// be buffered first, or godpmaster.ErrFrameFormat on an invalid start
// delimiter or length field.
func SizeFromRaw(buf []byte) (int, error) {
	if len(buf) < 1 {
		return 0, godpmaster.ErrNeedMore
	}
	switch buf[0] {
	case SC:
		return 1, nil
	case SD4:
		if len(buf) < 3 {
			return 0, godpmaster.ErrNeedMore
		}
		return 3, nil
	case SD1:
		if len(buf) < 6 {
			return 0, godpmaster.ErrNeedMore
		}
		return 6, nil
	case SD3:
		if len(buf) < 14 {
			return 0, godpmaster.ErrNeedMore
		}
		return 14, nil
	case SD2:
		if len(buf) < 4 {
			return 0, godpmaster.ErrNeedMore
		}
		if buf[3] != SD2 {
			return 0, godpmaster.ErrFrameFormat
		}
		le := buf[1]
		if buf[2] != le {
			return 0, godpmaster.ErrFrameFormat
		}
		if le < 4 || le > 249 {
			return 0, godpmaster.ErrFrameFormat
		}
		if len(buf) < int(le)+6 {
			return 0, godpmaster.ErrNeedMore
		}
		return int(le) + 6, nil
	default:
		return 0, godpmaster.ErrFrameFormat
	}
}

// DecodeOne decodes exactly one telegram from the front of buf. It returns
// godpmaster.ErrNeedMore if buf does not yet contain a complete frame.
func DecodeOne(buf []byte) (*Telegram, int, error) {
	size, err := SizeFromRaw(buf)
	if err != nil {
		return nil, 0, err
	}
	frame := buf[:size]

	switch frame[0] {
	case SC:
		return &Telegram{SD: SC}, 1, nil
	case SD4:
		return &Telegram{SD: SD4, DA: frame[1], SA: frame[2]}, 3, nil
	}

	var body []byte
	switch frame[0] {
	case SD1:
		body = frame[1 : size-2]
	case SD3:
		body = frame[1 : size-2]
	case SD2:
		body = frame[4 : size-2]
	}
	if len(body) < 3 {
		return nil, 0, godpmaster.ErrFrameFormat
	}
	fcs := frame[size-2]
	ed := frame[size-1]
	if ed != ED {
		return nil, 0, godpmaster.ErrFrameFormat
	}
	if checksum(body) != fcs {
		return nil, 0, godpmaster.ErrFrameFormat
	}

	da := body[0]
	sa := body[1]
	fc := body[2]
	rest := body[3:]

	if frame[0] == SD3 && len(rest) != 8 {
		return nil, 0, godpmaster.ErrFrameFormat
	}

	t := &Telegram{SD: frame[0], DA: da & AddressMask, SA: sa & AddressMask, FC: fc}

	if da&AddressExt != 0 {
		chain, n, err := decodeAE(rest)
		if err != nil {
			return nil, 0, err
		}
		t.DAE = chain
		rest = rest[n:]
	}
	if sa&AddressExt != 0 {
		chain, n, err := decodeAE(rest)
		if err != nil {
			return nil, 0, err
		}
		t.SAE = chain
		rest = rest[n:]
	}
	t.DU = rest

	return t, size, nil
}

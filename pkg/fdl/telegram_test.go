package fdl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/pkg/fdl"
)

func TestEncodeSlaveDiagReqExample(t *testing.T) {
	// Worked example: Slave_Diag_Req{da=8, sa=2} with FCB applied right after
	// Reset (bit set, FCV not yet valid) encodes as a bare SD1 frame.
	fcb := fdl.FCB{}
	fcb.Reset()
	fcb.Enable()

	telegram := &fdl.Telegram{SD: fdl.SD1, DA: 8, SA: 2, FC: fdl.FcReq | fdl.FcSrdHi}
	telegram.FC = fcb.Apply(telegram.FC)

	out, err := fdl.Encode(telegram)
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x08, 0x02, 0x6D, 0x77, 0x16}, out)
}

func TestRoundTripEachSDClass(t *testing.T) {
	cases := []*fdl.Telegram{
		{SD: fdl.SC},
		{SD: fdl.SD4, DA: 5, SA: 9},
		{SD: fdl.SD1, DA: 3, SA: 4, FC: fdl.FcReq | fdl.FcFdlStat},
		{SD: fdl.SD3, DA: 3, SA: 4, FC: fdl.FcReq | fdl.FcSdaLo, DU: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{SD: fdl.SD2, DA: 3, SA: 4, FC: fdl.FcReq | fdl.FcSrdLo, DU: []byte{0xAA, 0xBB, 0xCC}},
	}
	for _, tc := range cases {
		raw, err := fdl.Encode(tc)
		require.NoError(t, err)

		decoded, n, err := fdl.DecodeOne(raw)
		require.NoError(t, err)
		require.Equal(t, len(raw), n)
		require.Equal(t, tc.SD, decoded.SD)
		if tc.SD != fdl.SC {
			require.Equal(t, tc.DA, decoded.DA)
		}
		if tc.SD != fdl.SC && tc.SD != fdl.SD4 {
			require.Equal(t, tc.SA, decoded.SA)
			require.Equal(t, tc.FC, decoded.FC)
			require.Equal(t, tc.DU, decoded.DU)
		}
	}
}

func TestSD2BoundaryLengths(t *testing.T) {
	// LE = 4 is the smallest legal SD2 body (DA, SA, FC and one DU byte).
	small := &fdl.Telegram{SD: fdl.SD2, DA: 1, SA: 2, FC: 0x40, DU: []byte{0x00}}
	raw, err := fdl.Encode(small)
	require.NoError(t, err)
	require.Equal(t, byte(4), raw[1])

	// LE = 249 is the largest legal SD2 body: 246 bytes of DU.
	big := &fdl.Telegram{SD: fdl.SD2, DA: 1, SA: 2, FC: 0x40, DU: make([]byte, 246)}
	raw, err = fdl.Encode(big)
	require.NoError(t, err)
	require.Equal(t, byte(249), raw[1])

	// 247 bytes of DU exceeds the 246-byte DU limit (LE would be 250).
	tooBig := &fdl.Telegram{SD: fdl.SD2, DA: 1, SA: 2, FC: 0x40, DU: make([]byte, 247)}
	_, err = fdl.Encode(tooBig)
	require.ErrorIs(t, err, godpmaster.ErrFrameFormat)
}

func TestSizeFromRawNeedsMoreUntilComplete(t *testing.T) {
	full, err := fdl.Encode(&fdl.Telegram{SD: fdl.SD2, DA: 1, SA: 2, FC: 0x40, DU: []byte{1, 2, 3}})
	require.NoError(t, err)

	for n := 0; n < len(full); n++ {
		_, err := fdl.SizeFromRaw(full[:n])
		require.True(t, errors.Is(err, godpmaster.ErrNeedMore), "prefix length %d should need more", n)
	}
	size, err := fdl.SizeFromRaw(full)
	require.NoError(t, err)
	require.Equal(t, len(full), size)
}

func TestDecodeOneRejectsBadChecksum(t *testing.T) {
	raw, err := fdl.Encode(&fdl.Telegram{SD: fdl.SD1, DA: 1, SA: 2, FC: 0x40})
	require.NoError(t, err)
	raw[len(raw)-2] ^= 0xFF // corrupt FCS

	_, _, err = fdl.DecodeOne(raw)
	require.ErrorIs(t, err, godpmaster.ErrFrameFormat)
}

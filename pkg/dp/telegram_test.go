package dp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samsamfire/godpmaster/pkg/dp"
	"github.com/samsamfire/godpmaster/pkg/fdl"
)

func TestSlaveDiagConRoundTrip(t *testing.T) {
	con := dp.SlaveDiagCon{
		B0:          0,
		B1:          dp.B1One,
		B2:          0,
		MasterAddr:  2,
		IdentNumber: 0x1234,
		ExtDiag:     []byte{0x01, 0x02},
	}
	t_ := dp.EncodeSlaveDiagCon(2, 8, con, fdl.FcDl)
	raw, err := fdl.Encode(t_)
	require.NoError(t, err)

	decoded, _, err := fdl.DecodeOne(raw)
	require.NoError(t, err)

	got, err := dp.DecodeSlaveDiagCon(decoded)
	require.NoError(t, err)
	require.Equal(t, con, *got)
}

func TestSlaveDiagConPredicates(t *testing.T) {
	ready := dp.SlaveDiagCon{B1: dp.B1One}
	require.True(t, ready.IsReadyDataEx())
	require.False(t, ready.NeedsNewPrmCfg())
	require.False(t, ready.HasFault())

	notReady := dp.SlaveDiagCon{B1: dp.B1One | dp.B1PrmReq}
	require.False(t, notReady.IsReadyDataEx())
	require.True(t, notReady.NeedsNewPrmCfg())
	require.True(t, notReady.HasFault())

	neverSetOne := dp.SlaveDiagCon{}
	require.True(t, neverSetOne.HasFault())
}

func TestDataExchangeConRoundTrip(t *testing.T) {
	data := []byte{0x5A, 0x00, 0xFF}
	tgram := dp.EncodeDataExchangeCon(2, 8, data, fdl.FcDl)
	raw, err := fdl.Encode(tgram)
	require.NoError(t, err)

	decoded, _, err := fdl.DecodeOne(raw)
	require.NoError(t, err)

	con := dp.DecodeDataExchangeCon(decoded)
	require.Equal(t, data, con.Data)
	require.False(t, con.RequestsDiag())
	require.False(t, con.ServiceNotActive())
}

func TestDataExchangeConFlags(t *testing.T) {
	dh := &dp.DataExchangeCon{FC: fdl.FcDh}
	require.True(t, dh.RequestsDiag())

	rs := &dp.DataExchangeCon{FC: fdl.FcRs}
	require.True(t, rs.ServiceNotActive())
}

func TestChkCfgReqEncodesExpectedBytes(t *testing.T) {
	elems := []dp.CfgDataElement{
		{Identifier: dp.IDTypeIn | 0x03},
		{Identifier: 0x02, LengthBytes: []byte{0xAA, 0xBB}}, // SPEC type, 2 length bytes
	}
	tgram := dp.EncodeChkCfgReq(8, 2, elems)
	raw, err := fdl.Encode(tgram)
	require.NoError(t, err)

	decoded, _, err := fdl.DecodeOne(raw)
	require.NoError(t, err)
	require.Equal(t, []byte{dp.IDTypeIn | 0x03, 0x02, 0xAA, 0xBB}, decoded.DU)
}

package gsd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samsamfire/godpmaster/pkg/gsd"
)

const sampleGSD = `
#Profibus_DP
GSD_Revision = 1
Vendor_Name = "Acme Fieldbus"
Model_Name = "IO-16"
Ident_Number = 0x1234
Modular_Station = 1
FixPresetModules = 0
User_Prm_Data_Len = 4
User_Prm_Data = 0x00,0x00,0x00,0x00
Max_User_Prm_Data_Len = 6
Ext_User_Prm_Data_Const(0) = 0x01
MaxTsdr_500 = 150 ; comment dropped

Module = "8 DI" 0x10,0x01
  Ext_Module_Prm_Data_Len = 1
  Ext_User_Prm_Data_Const(0) = 0xFF
EndModule

Module = "8 DO" 0x20,0x01
EndModule
`

func TestParseBasicFields(t *testing.T) {
	g, err := gsd.Parse(sampleGSD)
	require.NoError(t, err)

	ident, err := g.IdentNumber()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), ident)

	require.Equal(t, "Acme Fieldbus", g.GetVendorName())
	require.Equal(t, "IO-16", g.GetModelName())
	require.False(t, g.IsDPV1())
}

func TestSetConfiguredModuleExactAndFuzzy(t *testing.T) {
	g, err := gsd.Parse(sampleGSD)
	require.NoError(t, err)

	require.NoError(t, g.SetConfiguredModule("8 DI", -1))
	require.NoError(t, g.SetConfiguredModule("8 do", -1)) // case-insensitive exact
	require.NoError(t, g.SetConfiguredModule("8 D", -1))  // fuzzy fallback, ambiguous prefix

	elems := g.GetCfgDataElements()
	require.Len(t, elems, 3)
	require.Equal(t, byte(0x10), elems[0].Identifier)
	require.Equal(t, byte(0x20), elems[1].Identifier)
}

func TestGetMaxTSDR(t *testing.T) {
	g, err := gsd.Parse(sampleGSD)
	require.NoError(t, err)

	v, ok := g.GetMaxTSDR(500000)
	require.True(t, ok)
	require.Equal(t, byte(150), v)

	_, ok = g.GetMaxTSDR(9600)
	require.False(t, ok)
}

func TestGetUserPrmDataOverlayAndTruncate(t *testing.T) {
	g, err := gsd.Parse(sampleGSD)
	require.NoError(t, err)
	require.NoError(t, g.SetConfiguredModule("8 DI", -1))

	data := g.GetUserPrmData(nil, nil)
	// Global template [0,0,0,0] with Ext_User_Prm_Data_Const(0)=0x01 overlaid,
	// then the module's own 1-byte overlay (0xFF) appended. The 5 bytes fit
	// within Max_User_Prm_Data_Len=6, which only truncates and never pads.
	require.Equal(t, []byte{0x01, 0, 0, 0, 0xFF}, data)
}

func TestMissingIdentNumberIsConfigError(t *testing.T) {
	_, err := gsd.Parse("#Profibus_DP\nVendor_Name = \"x\"\n")
	require.NoError(t, err) // parse succeeds, IdentNumber() reports the error

	g, _ := gsd.Parse("#Profibus_DP\nVendor_Name = \"x\"\n")
	_, err = g.IdentNumber()
	require.Error(t, err)
}

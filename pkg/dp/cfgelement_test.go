package dp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCfgDataElements(t *testing.T) {
	elems := []CfgDataElement{
		{Identifier: IDTypeIn | 0x03},
		{Identifier: 0x02, LengthBytes: []byte{0xAA, 0xBB}},
	}
	var buf []byte
	for _, e := range elems {
		buf = append(buf, e.encode()...)
	}

	got, err := decodeCfgDataElements(buf)
	require.NoError(t, err)
	require.Equal(t, elems, got)
}

func TestDecodeCfgDataElementsTruncated(t *testing.T) {
	// identifier claims 3 length bytes follow but only 1 is present.
	_, err := decodeCfgDataElements([]byte{0x03, 0xAA})
	require.Error(t, err)
}

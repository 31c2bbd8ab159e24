package fdl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samsamfire/godpmaster/pkg/fdl"
)

func TestFCBLifecycle(t *testing.T) {
	var fcb fdl.FCB
	fcb.Reset()
	require.False(t, fcb.Enabled())

	fcb.Enable()
	require.True(t, fcb.Enabled())

	base := fdl.FcReq | fdl.FcSrdLo
	applied := fcb.Apply(base)
	require.Equal(t, base|fdl.FcFcb, applied, "initial bit is 1, FCV not yet valid")

	fcb.SetWaitingReply()
	fcb.HandleReply()

	applied = fcb.Apply(base)
	require.Equal(t, base|fdl.FcFcv, applied, "bit toggled to 0, FCV now valid")
}

func TestFCBHandleReplyNoopWhenNotWaiting(t *testing.T) {
	var fcb fdl.FCB
	fcb.Reset()
	fcb.Enable()
	before := fcb.Apply(fdl.FcReq)
	fcb.HandleReply() // nothing was waiting
	after := fcb.Apply(fdl.FcReq)
	require.Equal(t, before, after)
}

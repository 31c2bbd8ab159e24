package dp

import (
	"fmt"

	godpmaster "github.com/samsamfire/godpmaster"
)

func fmtErrShort(service string) error {
	return fmt.Errorf("dp: %s telegram too short: %w", service, godpmaster.ErrTelegramDispatch)
}

func fmtErrMalformedCfg() error {
	return fmt.Errorf("dp: malformed Chk_Cfg data element: %w", godpmaster.ErrTelegramDispatch)
}

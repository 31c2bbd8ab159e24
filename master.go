package godpmaster

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/samsamfire/godpmaster/config"
	"github.com/samsamfire/godpmaster/pkg/gsd"
	"github.com/samsamfire/godpmaster/pkg/master"
	"github.com/samsamfire/godpmaster/pkg/phy"
)

// Master is the host-facing facade wiring the FDL/DP engine, the GSD
// interpreter and a PHY transport together from a single config.Config.
type Master struct {
	engine *master.Master
	log    *logrus.Entry
}

// NewMasterFromConfig builds and registers every slave named in cfg,
// reading each one's GSD file to derive its Chk_Cfg/Set_Prm payloads. log
// may be nil, in which case the standard logrus logger is used.
func NewMasterFromConfig(cfg *config.Config, log logrus.FieldLogger) (*Master, error) {
	entry, ok := log.(*logrus.Entry)
	if !ok || log == nil {
		l := logrus.StandardLogger()
		if cfg.Master.Debug {
			l.SetLevel(logrus.DebugLevel)
		}
		entry = logrus.NewEntry(l)
	}

	p, err := phy.NewPHY(cfg.Master.PhyType, cfg.Master.Address)
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}
	if err := p.SetConfig(cfg.Master.Baudrate); err != nil {
		return nil, fmt.Errorf("master: phy setConfig: %w", err)
	}

	engine := master.New(cfg.Master.Address, p, entry.WithField("component", "MASTER"))

	for _, sc := range cfg.Slaves {
		slaveCfg, err := buildSlaveConfig(sc, cfg.Master.Baudrate)
		if err != nil {
			return nil, err
		}
		if _, err := engine.AddSlave(slaveCfg); err != nil {
			return nil, err
		}
	}

	return &Master{engine: engine, log: entry}, nil
}

func buildSlaveConfig(sc config.SlaveConfig, baudrate int) (master.SlaveConfig, error) {
	text, err := os.ReadFile(sc.GSDPath)
	if err != nil {
		return master.SlaveConfig{}, fmt.Errorf("master: reading GSD for slave %s: %w", sc.Name, ErrConfigInvalid)
	}
	g, err := gsd.Parse(string(text))
	if err != nil {
		return master.SlaveConfig{}, err
	}
	ident, err := g.IdentNumber()
	if err != nil {
		return master.SlaveConfig{}, err
	}
	for i, modName := range sc.Modules {
		if err := g.SetConfiguredModule(modName, i); err != nil {
			return master.SlaveConfig{}, err
		}
	}

	minTSDR := byte(0)
	if v, ok := g.GetMaxTSDR(baudrate); ok {
		minTSDR = v
	}

	var mask, set []byte
	if g.IsDPV1() {
		mask = []byte{0, 0, 0}
		set = []byte{0, 0, 0}
	}

	return master.SlaveConfig{
		Address:     sc.Address,
		IdentNumber: ident,
		InputSize:   sc.InputSize,
		OutputSize:  sc.OutputSize,
		SyncMode:    sc.SyncMode,
		FreezeMode:  sc.FreezeMode,
		GroupMask:   sc.GroupMask,
		WatchdogMs:  sc.WatchdogMs,
		DiagPeriod:  sc.DiagPeriod,
		DPV1:        g.IsDPV1(),
		MinTSDR:     minTSDR,
		UserPrmData: g.GetUserPrmData(mask, set),
		CfgData:     g.GetCfgDataElements(),
	}, nil
}

// Run drives the engine until ctx is cancelled.
func (m *Master) Run(ctx context.Context) error {
	return m.engine.Run(ctx)
}

// SetOutData stages output data for a registered slave.
func (m *Master) SetOutData(addr byte, data []byte) error {
	return m.engine.SetMasterOutData(addr, data)
}

// InData returns and clears a registered slave's latest input data.
func (m *Master) InData(addr byte) ([]byte, error) {
	return m.engine.GetMasterInData(addr)
}

// IsConnecting reports whether any registered slave is still connecting.
func (m *Master) IsConnecting() bool { return m.engine.IsConnecting() }

// IsConnected reports whether every registered slave has reached DX.
func (m *Master) IsConnected() bool { return m.engine.IsConnected() }

// Package config loads the host-side static wiring for a DP master session
// — master address, baud rate, PHY selection and the slave roster — from a
// small INI file. It has nothing to do with GSD text, which pkg/gsd parses
// against its own grammar.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"

	godpmaster "github.com/samsamfire/godpmaster"
)

// MasterConfig is the [master] section of the wiring file.
type MasterConfig struct {
	Address  byte
	PhyType  string
	Baudrate int
	Debug    bool
}

// SlaveConfig is one [slave.<name>] section of the wiring file.
type SlaveConfig struct {
	Name        string
	Address     byte
	GSDPath     string
	Modules     []string
	InputSize   int
	OutputSize  int
	SyncMode    bool
	FreezeMode  bool
	GroupMask   byte
	WatchdogMs  int
	DiagPeriod  int
}

// Config is the fully parsed wiring file.
type Config struct {
	Master MasterConfig
	Slaves []SlaveConfig
}

// Load reads and parses path as the master/slave wiring INI file.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, godpmaster.ErrConfigInvalid)
	}
	return parse(f)
}

func parse(f *ini.File) (*Config, error) {
	cfg := &Config{}

	master := f.Section("master")
	addr, err := master.Key("address").Int()
	if err != nil {
		return nil, fmt.Errorf("config: master.address: %w", godpmaster.ErrConfigInvalid)
	}
	cfg.Master.Address = byte(addr)
	cfg.Master.PhyType = master.Key("phy").MustString("dummy")
	cfg.Master.Baudrate = master.Key("baudrate").MustInt(500000)
	cfg.Master.Debug = master.Key("debug").MustBool(false)

	for _, sec := range f.Sections() {
		const prefix = "slave."
		if len(sec.Name()) <= len(prefix) || sec.Name()[:len(prefix)] != prefix {
			continue
		}
		s, err := parseSlaveSection(sec)
		if err != nil {
			return nil, err
		}
		cfg.Slaves = append(cfg.Slaves, s)
	}
	return cfg, nil
}

func parseSlaveSection(sec *ini.Section) (SlaveConfig, error) {
	addr, err := sec.Key("address").Int()
	if err != nil {
		return SlaveConfig{}, fmt.Errorf("config: %s.address: %w", sec.Name(), godpmaster.ErrConfigInvalid)
	}
	s := SlaveConfig{
		Name:       sec.Name()[len("slave."):],
		Address:    byte(addr),
		GSDPath:    sec.Key("gsd").String(),
		Modules:    sec.Key("modules").Strings(","),
		InputSize:  sec.Key("input_size").MustInt(0),
		OutputSize: sec.Key("output_size").MustInt(0),
		SyncMode:   sec.Key("sync_mode").MustBool(false),
		FreezeMode: sec.Key("freeze_mode").MustBool(false),
		GroupMask:  byte(sec.Key("group_mask").MustInt(0)),
		WatchdogMs: sec.Key("watchdog_ms").MustInt(0),
		DiagPeriod: sec.Key("diag_period").MustInt(0),
	}
	if s.Address == 0 || s.Address > 125 {
		return SlaveConfig{}, fmt.Errorf("config: %s.address %d out of range: %w", sec.Name(), s.Address, godpmaster.ErrConfigInvalid)
	}
	return s, nil
}

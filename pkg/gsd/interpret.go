package gsd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xrash/smetrics"

	godpmaster "github.com/samsamfire/godpmaster"
	"github.com/samsamfire/godpmaster/pkg/dp"
)

// IdentNumber returns the slave's Ident_Number. Its absence is a
// configuration error: every DP slave must declare one.
func (g *Gsd) IdentNumber() (uint16, error) {
	v, ok := g.fields["Ident_Number"]
	if !ok {
		return 0, fmt.Errorf("gsd: missing Ident_Number: %w", godpmaster.ErrConfigInvalid)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(v), "0x"), hexOrDec(v), 32)
	if err != nil {
		return 0, fmt.Errorf("gsd: bad Ident_Number %q: %w", v, godpmaster.ErrConfigInvalid)
	}
	return uint16(n), nil
}

func (g *Gsd) isModular() bool { return g.boolField("Modular_Station") }

// IsDPV1 reports whether the slave supports DPV1 parameter overrides.
func (g *Gsd) IsDPV1() bool { return g.boolField("DPV1_Slave") }

// GetOrderNumber, GetVendorName, GetModelName expose descriptive GSD fields,
// with their surrounding quotes removed, used only for logging/diagnostics.
func (g *Gsd) GetOrderNumber() string { return strings.Trim(g.fields["Order_Number"], `"`) }
func (g *Gsd) GetVendorName() string  { return strings.Trim(g.fields["Vendor_Name"], `"`) }
func (g *Gsd) GetModelName() string   { return strings.Trim(g.fields["Model_Name"], `"`) }

// SetConfiguredModule selects a module from the catalog by name, matching
// in order: exact, case-insensitive exact, unique prefix, then closest
// Jaro-Winkler match. index=-1, or an index past the end of the configured
// list, appends; otherwise replaces the entry at that position.
func (g *Gsd) SetConfiguredModule(name string, index int) error {
	if g.fixPreset && index >= 0 && index < len(g.configured) {
		if g.catalog[g.configured[index]].preset {
			return fmt.Errorf("gsd: module at index %d is a locked preset module: %w", index, godpmaster.ErrConfigInvalid)
		}
	}

	catIdx, err := g.matchModule(name)
	if err != nil {
		return err
	}

	if index < 0 || index >= len(g.configured) {
		g.configured = append(g.configured, catIdx)
		return nil
	}
	g.configured[index] = catIdx
	return nil
}

func (g *Gsd) matchModule(name string) (int, error) {
	for i, m := range g.catalog {
		if m.name == name {
			return i, nil
		}
	}
	for i, m := range g.catalog {
		if strings.EqualFold(m.name, name) {
			return i, nil
		}
	}

	lower := strings.ToLower(name)
	prefixMatches := []int{}
	for i, m := range g.catalog {
		if strings.HasPrefix(strings.ToLower(m.name), lower) {
			prefixMatches = append(prefixMatches, i)
		}
	}
	if len(prefixMatches) == 1 {
		return prefixMatches[0], nil
	}

	if len(g.catalog) == 0 {
		return 0, fmt.Errorf("gsd: no modules declared, cannot match %q: %w", name, godpmaster.ErrConfigInvalid)
	}
	best := 0
	bestScore := -1.0
	for i, m := range g.catalog {
		score := smetrics.JaroWinkler(lower, strings.ToLower(m.name), 0.7, 4)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best, nil
}

// GetCfgDataElements builds the Chk_Cfg data elements for the configured
// module set, one per configured module, in configured order. Modules that
// declare no config bytes produce no element.
func (g *Gsd) GetCfgDataElements() []dp.CfgDataElement {
	out := make([]dp.CfgDataElement, 0, len(g.configured))
	for _, idx := range g.configured {
		m := g.catalog[idx]
		if len(m.configBytes) == 0 {
			continue
		}
		out = append(out, dp.CfgDataElement{
			Identifier:  m.configBytes[0],
			LengthBytes: append([]byte(nil), m.configBytes[1:]...),
		})
	}
	return out
}

// GetUserPrmData composes the Set_Prm User_Prm_Data payload: the global
// template, extended/truncated to User_Prm_Data_Len, with each global
// Ext_User_Prm_Data_Const overlaid, then each configured module's own
// overlay appended (bounded by its Ext_Module_Prm_Data_Len), with an
// optional DPV1 mask/set applied to the first three bytes, finally
// truncated (never extended) to Max_User_Prm_Data_Len.
func (g *Gsd) GetUserPrmData(dp1Mask, dp1Set []byte) []byte {
	data := parseUserPrmDataField(g.fields["User_Prm_Data"])
	if n, ok := g.intField("User_Prm_Data_Len"); ok {
		data = resizeTo(data, n)
	}
	overlay(data, g.extPrmConst)

	for _, idx := range g.configured {
		m := g.catalog[idx]
		modData := make([]byte, m.extPrmDataLen)
		overlay(modData, m.extPrmConst)
		data = append(data, modData...)
	}

	if g.IsDPV1() && len(dp1Mask) >= 3 && len(dp1Set) >= 3 && len(data) >= 3 {
		for i := 0; i < 3; i++ {
			data[i] = (data[i] &^ dp1Mask[i]) | (dp1Set[i] & dp1Mask[i])
		}
	}

	if n, ok := g.intField("Max_User_Prm_Data_Len"); ok && len(data) > n {
		data = data[:n]
	}
	return data
}

func parseUserPrmDataField(v string) []byte {
	if v == "" {
		return nil
	}
	b, err := parseByteList(v)
	if err != nil {
		return nil
	}
	return b
}

func resizeTo(b []byte, n int) []byte {
	if n < 0 {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func overlay(data []byte, runs map[int][]byte) {
	for offset, run := range runs {
		for i, b := range run {
			pos := offset + i
			if pos >= 0 && pos < len(data) {
				data[pos] = b
			}
		}
	}
}

// standardBaudFieldNames maps a baud rate to its MaxTsdr_<rate> GSD field.
var standardBaudFieldNames = map[int]string{
	9600:     "MaxTsdr_9.6",
	19200:    "MaxTsdr_19.2",
	45450:    "MaxTsdr_45.45",
	93750:    "MaxTsdr_93.75",
	187500:   "MaxTsdr_187.5",
	500000:   "MaxTsdr_500",
	1500000:  "MaxTsdr_1.5M",
	3000000:  "MaxTsdr_3M",
	6000000:  "MaxTsdr_6M",
	12000000: "MaxTsdr_12M",
}

// GetMaxTSDR returns the slave's Max_Tsdr value at baudrate, or ok=false
// when the GSD declares nothing for that rate (the master then leaves
// Set_Prm's minTSDR unchanged).
func (g *Gsd) GetMaxTSDR(baudrate int) (value byte, ok bool) {
	field, known := standardBaudFieldNames[baudrate]
	if !known {
		return 0, false
	}
	v, present := g.fields[field]
	if !present {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return byte(n), true
}

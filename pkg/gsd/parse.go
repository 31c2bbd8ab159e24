package gsd

import (
	"fmt"
	"strconv"
	"strings"

	godpmaster "github.com/samsamfire/godpmaster"
)

// moduleEntry is one catalog entry from a Module ... EndModule block.
type moduleEntry struct {
	name          string
	configBytes   []byte
	extPrmDataLen int
	extPrmConst   map[int][]byte
	preset        bool
}

// Gsd holds the parsed content of one GSD file.
type Gsd struct {
	fields     map[string]string // raw key=value pairs, last writer wins
	extPrmConst map[int][]byte    // global Ext_User_Prm_Data_Const(offset)
	extPrmRef   map[int]int       // global Ext_User_Prm_Data_Ref(offset) -> refNr, informational only
	catalog    []moduleEntry
	configured []int // indices into catalog, in configured order
	fixPreset  bool
}

// Parse interprets the text of one GSD file.
func Parse(text string) (*Gsd, error) {
	lines := preprocessLines(text)
	g := &Gsd{
		fields:      map[string]string{},
		extPrmConst: map[int][]byte{},
		extPrmRef:   map[int]int{},
	}

	for i := 0; i < len(lines); {
		line := lines[i]
		key, val, ok := splitKV(line)
		if !ok {
			i++
			continue
		}

		switch {
		case key == "Module":
			block, consumed := collectModuleBlock(lines[i:])
			m, err := parseModuleBlock(val, block)
			if err != nil {
				return nil, err
			}
			g.catalog = append(g.catalog, m)
			i += consumed

		case strings.HasPrefix(key, "Ext_User_Prm_Data_Const("):
			offset, err := parseOffsetKey(key, "Ext_User_Prm_Data_Const(")
			if err != nil {
				return nil, err
			}
			bytes, err := parseByteList(val)
			if err != nil {
				return nil, err
			}
			g.extPrmConst[offset] = bytes
			i++

		case strings.HasPrefix(key, "Ext_User_Prm_Data_Ref("):
			offset, err := parseOffsetKey(key, "Ext_User_Prm_Data_Ref(")
			if err != nil {
				return nil, err
			}
			refNr, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("gsd: bad Ext_User_Prm_Data_Ref value %q: %w", val, godpmaster.ErrConfigInvalid)
			}
			g.extPrmRef[offset] = refNr
			i++

		default:
			g.fields[key] = val
			i++
		}
	}

	g.fixPreset = g.boolField("FixPresetModules")
	if !g.isModular() {
		for idx := range g.catalog {
			g.configured = append(g.configured, idx)
		}
	}
	return g, nil
}

// splitKV splits "Key = Value" / "Key=Value", tolerating the parenthesized
// offset-tag keys (Ext_User_Prm_Data_Const(3)=...).
func splitKV(line string) (key, val string, ok bool) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:eq])
	val = strings.TrimSpace(line[eq+1:])
	return key, val, true
}

func parseOffsetKey(key, prefix string) (int, error) {
	rest := strings.TrimPrefix(key, prefix)
	rest = strings.TrimSuffix(rest, ")")
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, fmt.Errorf("gsd: bad offset in %q: %w", key, godpmaster.ErrConfigInvalid)
	}
	return n, nil
}

// collectModuleBlock gathers every line from a "Module = ..." line up to and
// including its matching "EndModule", returning the interior lines and how
// many lines (including both delimiters) were consumed.
func collectModuleBlock(lines []string) (interior []string, consumed int) {
	for i := 1; i < len(lines); i++ {
		if strings.EqualFold(strings.TrimSpace(lines[i]), "EndModule") {
			return lines[1:i], i + 1
		}
	}
	return nil, len(lines)
}

// parseModuleBlock builds one catalog entry from a Module header value (the
// quoted name followed by comma-separated config bytes) plus its interior
// lines (Ext_Module_Prm_Data_Len, per-module Ext_User_Prm_Data_Const, Preset).
func parseModuleBlock(header string, interior []string) (moduleEntry, error) {
	name, rest, err := splitQuoted(header)
	if err != nil {
		return moduleEntry{}, err
	}
	cfgBytes, err := parseByteList(rest)
	if err != nil {
		return moduleEntry{}, err
	}

	m := moduleEntry{name: name, configBytes: cfgBytes, extPrmConst: map[int][]byte{}}
	for _, l := range interior {
		key, val, ok := splitKV(l)
		if !ok {
			continue
		}
		switch {
		case key == "Ext_Module_Prm_Data_Len":
			n, convErr := strconv.Atoi(strings.TrimSpace(val))
			if convErr == nil {
				m.extPrmDataLen = n
			}
		case strings.HasPrefix(key, "Ext_User_Prm_Data_Const("):
			offset, offErr := parseOffsetKey(key, "Ext_User_Prm_Data_Const(")
			if offErr != nil {
				return moduleEntry{}, offErr
			}
			b, bErr := parseByteList(val)
			if bErr != nil {
				return moduleEntry{}, bErr
			}
			m.extPrmConst[offset] = b
		case key == "Preset":
			m.preset = strings.TrimSpace(val) == "1"
		}
	}
	return m, nil
}

// splitQuoted pulls a leading "quoted string" off s, returning it unquoted
// along with whatever trailing text follows.
func splitQuoted(s string) (quoted, rest string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		return "", "", fmt.Errorf("gsd: expected quoted module name in %q: %w", s, godpmaster.ErrConfigInvalid)
	}
	end := strings.Index(s[1:], `"`)
	if end < 0 {
		return "", "", fmt.Errorf("gsd: unterminated quoted string in %q: %w", s, godpmaster.ErrConfigInvalid)
	}
	end++
	quoted = s[1:end]
	rest = strings.TrimSpace(strings.TrimPrefix(s[end+1:], ","))
	return quoted, rest, nil
}

// parseByteList parses a comma-separated list of 0xNN / decimal byte tokens.
func parseByteList(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(p), "0x"), hexOrDec(p), 16)
		if err != nil {
			return nil, fmt.Errorf("gsd: bad byte token %q: %w", p, godpmaster.ErrConfigInvalid)
		}
		out = append(out, byte(n))
	}
	return out, nil
}

func hexOrDec(tok string) int {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(tok)), "0x") {
		return 16
	}
	return 10
}

func (g *Gsd) boolField(key string) bool {
	v, ok := g.fields[key]
	return ok && strings.TrimSpace(v) == "1"
}

func (g *Gsd) intField(key string) (int, bool) {
	v, ok := g.fields[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Package link is the host end of the firmware protocol: it retrieves and
// parses the data dictionary, frames commands and decodes responses into
// typed events.
package link

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ParamKind is how one message parameter is encoded on the wire
type ParamKind uint8

const (
	ParamUint ParamKind = iota
	ParamInt
	ParamBuffer
)

// Param is one "name=%fmt" entry of a message format
type Param struct {
	Name string
	Kind ParamKind
}

// MessageFormat describes one command or response
type MessageFormat struct {
	ID       uint16
	Name     string
	Params   []Param
	Response bool
}

// Dictionary is the parsed data dictionary of a firmware image
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`

	byID    map[uint16]*MessageFormat
	byName  map[string]*MessageFormat
	reasons map[uint16]string
}

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrBadFormat      = errors.New("malformed message format")
)

// ParseDictionary parses a dictionary as retrieved with identify. Data
// starting with a zlib header is inflated first.
func ParseDictionary(raw []byte) (*Dictionary, error) {
	data := raw
	if len(raw) >= 2 && raw[0] == 0x78 {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("dictionary: %w", err)
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("dictionary: inflate: %w", err)
		}
	}
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}

// Bootstrap returns the two messages every image places first, which is
// enough to download the real dictionary
func Bootstrap() *Dictionary {
	d := &Dictionary{
		Commands:  map[string]int{"identify offset=%u count=%c": 1},
		Responses: map[string]int{"identify_response offset=%u data=%.*s": 0},
	}
	if err := d.index(); err != nil {
		panic(err)
	}
	return d
}

func (d *Dictionary) index() error {
	d.byID = make(map[uint16]*MessageFormat)
	d.byName = make(map[string]*MessageFormat)
	add := func(formats map[string]int, response bool) error {
		for format, id := range formats {
			mf, err := parseFormat(format)
			if err != nil {
				return err
			}
			mf.ID = uint16(id)
			mf.Response = response
			d.byID[mf.ID] = mf
			d.byName[mf.Name] = mf
		}
		return nil
	}
	if err := add(d.Commands, false); err != nil {
		return err
	}
	if err := add(d.Responses, true); err != nil {
		return err
	}
	d.reasons = make(map[uint16]string)
	for msg, id := range d.Enumerations["static_string_id"] {
		d.reasons[uint16(id)] = msg
	}
	return nil
}

// parseFormat splits "name a=%u b=%*s" into a MessageFormat
func parseFormat(format string) (*MessageFormat, error) {
	fields := strings.Fields(format)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadFormat)
	}
	mf := &MessageFormat{Name: fields[0]}
	for _, f := range fields[1:] {
		name, spec, ok := strings.Cut(f, "=")
		if !ok || !strings.HasPrefix(spec, "%") {
			return nil, fmt.Errorf("%w: %q", ErrBadFormat, format)
		}
		p := Param{Name: name}
		switch {
		case strings.HasSuffix(spec, "s"):
			p.Kind = ParamBuffer
		case strings.HasSuffix(spec, "i"):
			p.Kind = ParamInt
		}
		mf.Params = append(mf.Params, p)
	}
	return mf, nil
}

// Lookup returns the format with the given id
func (d *Dictionary) Lookup(id uint16) (*MessageFormat, bool) {
	mf, ok := d.byID[id]
	return mf, ok
}

// Message returns the format of a command or response by name
func (d *Dictionary) Message(name string) (*MessageFormat, bool) {
	mf, ok := d.byName[name]
	return mf, ok
}

// Reason returns the text of a static string id
func (d *Dictionary) Reason(id uint16) string {
	if msg, ok := d.reasons[id]; ok {
		return msg
	}
	return "static string " + strconv.Itoa(int(id))
}

// ClockFreq returns the CLOCK_FREQ constant, or 0 if absent
func (d *Dictionary) ClockFreq() uint32 {
	v, err := strconv.ParseUint(d.Config["CLOCK_FREQ"], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// CommandNames lists the commands the firmware accepts
func (d *Dictionary) CommandNames() []string {
	var names []string
	for _, mf := range d.byName {
		if !mf.Response {
			names = append(names, mf.Name)
		}
	}
	sort.Strings(names)
	return names
}

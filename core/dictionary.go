package core

import (
	"bytes"
	"sort"
	"sync"

	"tickcore/protocol"
	"tickcore/tinycompress"
)

// Constant represents a firmware constant exposed to the host
type Constant struct {
	Name  string
	Value interface{} // Can be string, int, etc.
}

// Enumeration represents an enumeration of values (like pin names)
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary manages the data dictionary sent to the host
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	strings       *StaticStrings
	version       string
	buildVersions string
	cachedDict    []byte // compressed, built once by BuildDictionary
}

// NewDictionary creates a dictionary over the given command registry. The
// static string table is published as the "static_string_id" enumeration.
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		strings:       GetStaticStrings(),
		version:       protocol.Version,
		buildVersions: "go-tinygo",
	}
}

// AddConstant adds a constant to the dictionary
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{
		Name:  name,
		Value: value,
	}
}

// AddEnumeration adds an enumeration to the dictionary
func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Copy so the caller may reuse its slice
	valuesCopy := make([]string, len(values))
	copy(valuesCopy, values)
	d.enumerations[name] = &Enumeration{
		Name:   name,
		Values: valuesCopy,
	}
}

// SetVersion sets the firmware version string
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
}

// SetBuildVersions sets the build versions string
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
}

// BuildDictionary builds and caches the compressed dictionary. Call it
// after every command and static string has been registered.
func (d *Dictionary) BuildDictionary() {
	// Fetch registry contents before taking our own lock
	commands, responses := d.commandReg.GetCommandsAndResponses()

	d.mu.Lock()
	defer d.mu.Unlock()
	jsonData := d.buildJSONLocked(commands, responses)

	var buf bytes.Buffer
	w := tinycompress.NewWriter(&buf)
	w.Write(jsonData)
	if err := w.Close(); err != nil {
		DebugPrintln("[dict] compression failed: " + err.Error())
		return
	}
	d.cachedDict = buf.Bytes()
	DebugPrintln("[dict] built " + itoa(len(jsonData)) + " bytes, " +
		itoa(len(d.cachedDict)) + " compressed")
}

// Generate returns the compressed dictionary, building it on first use
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached == nil {
		d.BuildDictionary()
		d.mu.RLock()
		cached = d.cachedDict
		d.mu.RUnlock()
	}
	return cached
}

// JSON returns the uncompressed dictionary
func (d *Dictionary) JSON() []byte {
	commands, responses := d.commandReg.GetCommandsAndResponses()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSONLocked(commands, responses)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// appendIDMap writes {"format":id,...} ordered by id
func appendIDMap(result []byte, m map[string]int) []byte {
	formats := sortedKeys(m)
	sort.SliceStable(formats, func(i, j int) bool { return m[formats[i]] < m[formats[j]] })
	result = append(result, '{')
	for i, f := range formats {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, f)
		result = append(result, ':')
		result = append(result, itoa(m[f])...)
	}
	return append(result, '}')
}

// appendQuoted writes a JSON string. Dictionary strings are plain ASCII;
// only quote and backslash need escaping.
func appendQuoted(result []byte, s string) []byte {
	result = append(result, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			result = append(result, '\\')
		}
		result = append(result, c)
	}
	return append(result, '"')
}

// buildJSONLocked builds the JSON dictionary (caller must hold lock)
func (d *Dictionary) buildJSONLocked(commands, responses map[string]int) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":`...)
	result = appendQuoted(result, d.version)
	result = append(result, `,"build_versions":`...)
	result = appendQuoted(result, d.buildVersions)

	result = append(result, `,"config":{`...)
	for i, name := range sortedKeys(d.constants) {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, name)
		result = append(result, ':')
		result = appendQuoted(result, valueToString(d.constants[name].Value))
	}
	result = append(result, `},"commands":`...)
	result = appendIDMap(result, commands)
	result = append(result, `,"responses":`...)
	result = appendIDMap(result, responses)

	// Enumerations: {"enum":{"value":index,...}}; empty values are skipped
	enums := make(map[string][]string, len(d.enumerations)+1)
	for name, e := range d.enumerations {
		enums[name] = e.Values
	}
	if d.strings != nil {
		enums["static_string_id"] = d.strings.Values()
	}
	result = append(result, `,"enumerations":{`...)
	for i, name := range sortedKeys(enums) {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, name)
		result = append(result, `:{`...)
		first := true
		for idx, value := range enums[name] {
			if value == "" {
				continue
			}
			if !first {
				result = append(result, ',')
			}
			result = appendQuoted(result, value)
			result = append(result, ':')
			result = append(result, itoa(idx)...)
			first = false
		}
		result = append(result, '}')
	}
	result = append(result, '}')

	return append(result, '}')
}

// GetChunk returns a copy of up to count bytes of the compressed
// dictionary starting at offset
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := min(offset+uint32(count), uint32(len(data)))
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// valueToString converts a constant to its dictionary string form
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return itoa(val)
	case uint8:
		return utoa(uint32(val))
	case uint16:
		return utoa(uint32(val))
	case uint32:
		return utoa(val)
	case int32:
		return itoa(int(val))
	case bool:
		if val {
			return "1"
		}
		return "0"
	}
	return ""
}

package core

import "sync"

// ReasonCode identifies a static string (shutdown reasons and similar
// fixed messages). Codes are published to the host in the data dictionary
// under the "static_string_id" enumeration.
type ReasonCode uint16

// StaticStrings assigns stable codes to fixed message strings
type StaticStrings struct {
	mu    sync.RWMutex
	ids   map[string]ReasonCode
	names []string
}

var globalStrings = NewStaticStrings()

// NewStaticStrings creates an empty table. Code 0 is reserved.
func NewStaticStrings() *StaticStrings {
	return &StaticStrings{
		ids:   make(map[string]ReasonCode),
		names: []string{""},
	}
}

// Intern returns the code for msg, assigning one on first use
func (t *StaticStrings) Intern(msg string) ReasonCode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[msg]; ok {
		return id
	}
	id := ReasonCode(len(t.names))
	t.names = append(t.names, msg)
	t.ids[msg] = id
	return id
}

// Lookup returns the string for a code
func (t *StaticStrings) Lookup(id ReasonCode) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id == 0 || int(id) >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Values returns the table indexed by code (index 0 is empty)
func (t *StaticStrings) Values() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// StaticString interns msg in the global table. Call it at package
// initialization so shutdown paths never take the table lock.
func StaticString(msg string) ReasonCode {
	return globalStrings.Intern(msg)
}

// ReasonString returns the message for a code from the global table
func ReasonString(id ReasonCode) string {
	s, ok := globalStrings.Lookup(id)
	if !ok {
		return "unknown reason " + itoa(int(id))
	}
	return s
}

// GetStaticStrings returns the global table
func GetStaticStrings() *StaticStrings {
	return globalStrings
}

// Reasons raised by the scheduler itself
var (
	ReasonTimerTooClose       = StaticString("Timer too close")
	ReasonSentinelCalled      = StaticString("sentinel timer called")
	ReasonClearNotShutdown    = StaticString("Shutdown cleared when not shutdown")
	ReasonRescheduledInPast   = StaticString("Rescheduled timer in the past")
	ReasonCommandRequest      = StaticString("Command request")
	ReasonInvalidCommandState = StaticString("Invalid command in current state")
)

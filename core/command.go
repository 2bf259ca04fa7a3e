package core

import (
	"errors"
	"strings"
	"sync"

	"tickcore/protocol"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command flags
const (
	// HF_IN_SHUTDOWN marks a command that may run while shut down
	HF_IN_SHUTDOWN = 0x01
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotACommand    = errors.New("message is a response")
)

// Command represents a host command or an MCU response message
type Command struct {
	ID      uint16
	Name    string
	Format  string // Format string for dictionary (e.g., "oid=%c pin=%u")
	Flags   uint8
	Handler CommandHandler
}

// CommandRegistry assigns message ids. Ids follow registration order, so
// identify_response and identify must be registered first (ids 0 and 1).
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
	nextID   uint16
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command that is refused while the machine is shut down
func (r *CommandRegistry) Register(name, format string, handler CommandHandler) uint16 {
	return r.RegisterFlags(name, format, 0, handler)
}

// RegisterFlags adds a command with HF_* flags. Re-registering a name
// returns the existing id.
func (r *CommandRegistry) RegisterFlags(name, format string, flags uint8, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++
	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Flags:   flags,
		Handler: handler,
	}
	r.nameToID[name] = id
	return id
}

// RegisterResponse registers a response message (MCU -> Host)
func (r *CommandRegistry) RegisterResponse(name, format string) uint16 {
	return r.RegisterFlags(name, format, 0, nil)
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command or response by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered messages
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler for cmdID. While s is shut down a command
// without HF_IN_SHUTDOWN has its arguments skipped and is answered with
// the shutdown report instead.
func (r *CommandRegistry) Dispatch(s *Scheduler, cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return errors.Join(ErrUnknownCommand, errors.New("id "+itoa(int(cmdID))))
	}
	if cmd.Handler == nil {
		return errors.Join(ErrNotACommand, errors.New(cmd.Name))
	}
	if s != nil && s.IsShutdown() && cmd.Flags&HF_IN_SHUTDOWN == 0 {
		if err := SkipArgs(cmd.Format, data); err != nil {
			return err
		}
		s.ReportShutdown()
		return nil
	}
	return cmd.Handler(data)
}

// GetCommandsAndResponses returns commands and responses for JSON dictionary
// Commands have handlers (host->MCU), responses have nil handlers (MCU->host)
func (r *CommandRegistry) GetCommandsAndResponses() (map[string]int, map[string]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make(map[string]int)
	responses := make(map[string]int)
	for _, cmd := range r.commands {
		formatStr := cmd.Name
		if cmd.Format != "" {
			formatStr = cmd.Name + " " + cmd.Format
		}
		if cmd.Handler != nil {
			commands[formatStr] = int(cmd.ID)
		} else {
			responses[formatStr] = int(cmd.ID)
		}
	}
	return commands, responses
}

// argIsBuffer reports whether a format parameter is length-prefixed bytes
func argIsBuffer(param string) bool {
	return strings.HasSuffix(param, "s")
}

// SkipArgs consumes the arguments described by format from data
func SkipArgs(format string, data *[]byte) error {
	for _, param := range strings.Fields(format) {
		var err error
		if argIsBuffer(param) {
			_, err = protocol.DecodeVLQBytes(data)
		} else {
			_, err = protocol.DecodeVLQUint(data)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// argIsSigned reports whether a format parameter is a signed integer
func argIsSigned(param string) bool {
	return strings.HasSuffix(param, "%i") || strings.HasSuffix(param, "%hi")
}

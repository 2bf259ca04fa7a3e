package link

// Event is a decoded firmware report
type Event interface {
	event()
}

// Starting is sent once the firmware has run its init callbacks
type Starting struct{}

// Shutdown reports the first fault of a shutdown episode
type Shutdown struct {
	Clock    uint32
	ReasonID uint16
	Reason   string
}

// IsShutdown answers a command refused while shut down
type IsShutdown struct {
	ReasonID uint16
	Reason   string
}

// Stats are the main loop statistics sent every few seconds
type Stats struct {
	Count, Sum, Sumsq uint32
}

// Clock answers get_clock
type Clock struct {
	Clock uint32
}

// Uptime answers get_uptime
type Uptime struct {
	High, Clock uint32
}

// Config answers get_config
type Config struct {
	IsConfig   bool
	CRC        uint32
	IsShutdown bool
	MoveCount  uint32
}

// CounterState is one pulse counter sample
type CounterState struct {
	OID        uint8
	NextClock  uint32
	Count      uint32
	CountClock uint32
}

// Other carries a message with no typed form
type Other struct {
	Message Message
}

func (Starting) event()     {}
func (Shutdown) event()     {}
func (IsShutdown) event()   {}
func (Stats) event()        {}
func (Clock) event()        {}
func (Uptime) event()       {}
func (Config) event()       {}
func (CounterState) event() {}
func (Other) event()        {}

// ToEvent converts a decoded message to its typed event
func ToEvent(dict *Dictionary, msg Message) Event {
	switch msg.Name {
	case "starting":
		return Starting{}
	case "shutdown":
		id := uint16(msg.Uint("static_string_id"))
		return Shutdown{Clock: msg.Uint("clock"), ReasonID: id, Reason: dict.Reason(id)}
	case "is_shutdown":
		id := uint16(msg.Uint("static_string_id"))
		return IsShutdown{ReasonID: id, Reason: dict.Reason(id)}
	case "stats":
		return Stats{Count: msg.Uint("count"), Sum: msg.Uint("sum"), Sumsq: msg.Uint("sumsq")}
	case "clock":
		return Clock{Clock: msg.Uint("clock")}
	case "uptime":
		return Uptime{High: msg.Uint("high"), Clock: msg.Uint("clock")}
	case "config":
		return Config{
			IsConfig:   msg.Uint("is_config") != 0,
			CRC:        msg.Uint("crc"),
			IsShutdown: msg.Uint("is_shutdown") != 0,
			MoveCount:  msg.Uint("move_count"),
		}
	case "counter_state":
		return CounterState{
			OID:        uint8(msg.Uint("oid")),
			NextClock:  msg.Uint("next_clock"),
			Count:      msg.Uint("count"),
			CountClock: msg.Uint("count_clock"),
		}
	}
	return Other{Message: msg}
}

// Package sim runs a firmware image on a simulated machine and drives it
// from a scripted host. A scenario lists the host commands and injected
// faults per main loop iteration; the result is the decoded report stream.
package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIterations = 100
	MaxIterations     = 1_000_000
)

// Injected faults
const (
	FaultTimerTooClose     = "timer_too_close"
	FaultInterrupt         = "interrupt_fault"
	FaultRescheduledInPast = "rescheduled_in_past"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a scripted simulation run
type Scenario struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	Iterations int      `json:"iterations" yaml:"iterations" toml:"iterations"`
	StartClock uint32   `json:"start_clock" yaml:"start_clock" toml:"start_clock"`
	ReadStep   uint32   `json:"read_step" yaml:"read_step" toml:"read_step"`
	Debug      bool     `json:"debug" yaml:"debug" toml:"debug"`
	Signals    []Signal `json:"signals" yaml:"signals" toml:"signals"`
	Steps      []Step   `json:"steps" yaml:"steps" toml:"steps"`
}

// Signal is a square wave driven onto an input pin for the whole run
type Signal struct {
	Pin        uint32 `json:"pin" yaml:"pin" toml:"pin"`
	HalfPeriod uint32 `json:"half_period" yaml:"half_period" toml:"half_period"`
}

// Step happens just before main loop iteration At. It either sends a host
// command or injects a fault.
//
// Command arguments are integers, or "now" / "now+N" for a clock relative
// to the simulated counter when the step runs.
type Step struct {
	At      int      `json:"at" yaml:"at" toml:"at"`
	Command string   `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
	Fault   string   `json:"fault,omitempty" yaml:"fault,omitempty" toml:"fault,omitempty"`
}

// LoadScenario reads a scenario file. The format follows the extension:
// .json, .yaml/.yml or .toml.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := ParseScenario(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// ParseScenario decodes data in the given format (an extension, with or
// without the dot), fills in defaults and validates the result
func ParseScenario(data []byte, format string) (*Scenario, error) {
	sc := &Scenario{}
	var err error
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		err = json.Unmarshal(data, sc)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, sc)
	case "toml":
		_, err = toml.Decode(string(data), sc)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidScenario, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Iterations == 0 {
		sc.Iterations = DefaultIterations
	}
	if sc.ReadStep == 0 {
		sc.ReadStep = 1
	}
}

// Validate checks the scenario is runnable
func (sc *Scenario) Validate() error {
	if sc.Iterations < 1 || sc.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations %d out of range", ErrInvalidScenario, sc.Iterations)
	}
	if sc.ReadStep == 0 {
		return fmt.Errorf("%w: read_step must be non-zero", ErrInvalidScenario)
	}
	for i, sig := range sc.Signals {
		if sig.HalfPeriod == 0 {
			return fmt.Errorf("%w: signal %d: half_period must be non-zero", ErrInvalidScenario, i)
		}
	}
	for i, st := range sc.Steps {
		if st.At < 0 || st.At >= sc.Iterations {
			return fmt.Errorf("%w: step %d: at %d outside the run", ErrInvalidScenario, i, st.At)
		}
		if (st.Command == "") == (st.Fault == "") {
			return fmt.Errorf("%w: step %d: needs exactly one of command or fault", ErrInvalidScenario, i)
		}
		switch st.Fault {
		case "", FaultTimerTooClose, FaultInterrupt, FaultRescheduledInPast:
		default:
			return fmt.Errorf("%w: step %d: unknown fault %q", ErrInvalidScenario, i, st.Fault)
		}
		if _, err := st.resolveArgs(0); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

// resolveArgs turns the textual arguments into values, with now as the
// current simulated clock
func (st Step) resolveArgs(now uint32) ([]int64, error) {
	out := make([]int64, 0, len(st.Args))
	for _, a := range st.Args {
		a = strings.TrimSpace(a)
		if rest, ok := strings.CutPrefix(a, "now"); ok {
			var off int64
			if rest != "" {
				v, err := strconv.ParseInt(strings.TrimPrefix(rest, "+"), 0, 64)
				if err != nil || !strings.HasPrefix(rest, "+") {
					return nil, fmt.Errorf("bad clock argument %q", a)
				}
				off = v
			}
			out = append(out, int64(uint32(int64(now)+off)))
			continue
		}
		v, err := strconv.ParseInt(a, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad argument %q", a)
		}
		out = append(out, v)
	}
	return out, nil
}

// Package dtmf accumulates telephone keypad digits into multi-digit inputs.
package dtmf

import (
	"fmt"
	"strings"
	"sync"
)

type Mode string

const (
	ModeIdle        Mode = "idle"
	ModeLanguage    Mode = "language"
	ModePhoneNumber Mode = "phone_number"
	ModeDateOfBirth Mode = "date_of_birth"
)

const (
	phoneNumberLength = 10
	dateOfBirthLength = 8
)

type Status string

const (
	// StatusCollecting means more digits are needed.
	StatusCollecting Status = "collecting"
	// StatusComplete means the buffer reached the mode's required length.
	StatusComplete Status = "complete"
	// StatusInvalid means a terminal rejection (wrong language selector).
	StatusInvalid Status = "invalid"
	// StatusUnknown means a digit arrived with no collection in progress.
	StatusUnknown Status = "unknown"
)

type Result struct {
	Status  Status
	Mode    Mode
	Message string
	Digits  string
}

// Terminal reports whether this result ends the current collection cycle.
func (r Result) Terminal() bool {
	return r.Status != StatusCollecting
}

// Collector is a per-session digit accumulator. The active mode decides how
// many digits complete a cycle: one for the language selector, ten for a
// phone number, eight for a date of birth.
type Collector struct {
	mu          sync.Mutex
	mode        Mode
	buffer      strings.Builder
	complete    bool
	switchDigit string
}

func NewCollector(switchDigit string) *Collector {
	if switchDigit == "" {
		switchDigit = "1"
	}
	return &Collector{mode: ModeIdle, switchDigit: switchDigit}
}

// Press feeds one digit and returns the resulting collection state.
func (c *Collector) Press(digit string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.complete = false
	c.buffer.WriteString(digit)

	switch c.mode {
	case ModeLanguage:
		c.buffer.Reset()
		if digit == c.switchDigit {
			c.complete = true
			return Result{Status: StatusComplete, Mode: ModeLanguage, Message: "Language switched to Spanish.", Digits: digit}
		}
		return Result{Status: StatusInvalid, Mode: ModeLanguage, Message: "Invalid input for language selection."}

	case ModePhoneNumber:
		if c.buffer.Len() == phoneNumberLength {
			digits := c.buffer.String()
			c.buffer.Reset()
			c.complete = true
			return Result{
				Status:  StatusComplete,
				Mode:    ModePhoneNumber,
				Message: fmt.Sprintf("Phone number received: %s.", digits),
				Digits:  digits,
			}
		}
		return Result{Status: StatusCollecting, Mode: ModePhoneNumber, Message: "Collecting phone number..."}

	case ModeDateOfBirth:
		if c.buffer.Len() == dateOfBirthLength {
			digits := c.buffer.String()
			c.buffer.Reset()
			c.complete = true
			return Result{
				Status:  StatusComplete,
				Mode:    ModeDateOfBirth,
				Message: fmt.Sprintf("Date of birth received: %s.", digits),
				Digits:  digits,
			}
		}
		return Result{Status: StatusCollecting, Mode: ModeDateOfBirth, Message: "Collecting date of birth..."}

	default:
		c.buffer.Reset()
		return Result{Status: StatusUnknown, Mode: ModeIdle, Message: "Unknown state."}
	}
}

// SetMode starts a new collection cycle, discarding any buffered digits.
func (c *Collector) SetMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.buffer.Reset()
	c.complete = false
}

// Reset returns the collector to idle and clears all state. Called after a
// completed cycle or an idle timeout.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeIdle
	c.buffer.Reset()
	c.complete = false
}

func (c *Collector) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Collector) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}

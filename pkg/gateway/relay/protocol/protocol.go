// Package protocol defines the JSON frames exchanged with the telephony
// relay over one duplex websocket per call, and the decoder that maps raw
// inbound payloads to typed frames.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// UnknownTypeError marks an inbound frame kind this gateway does not
// recognize. Callers log it and carry on; it is a compatibility policy,
// not a protocol violation.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown frame type %q", e.Type)
}

// Setup establishes or resumes a session. The session is keyed by CallSID,
// falling back to SessionID when the relay omits it.
type Setup struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	CallSID        string `json:"callSid,omitempty"`
	ParentCallSID  string `json:"parentCallSid,omitempty"`
	From           string `json:"from,omitempty"`
	To             string `json:"to,omitempty"`
	ForwardedFrom  string `json:"forwardedFrom,omitempty"`
	CallerName     string `json:"callerName,omitempty"`
	Direction      string `json:"direction,omitempty"`
	CallType       string `json:"callType,omitempty"`
	CallStatus     string `json:"callStatus,omitempty"`
	AccountSID     string `json:"accountSid,omitempty"`
	ApplicationSID string `json:"applicationSid,omitempty"`
}

// Key returns the identifier the session registry uses for this call.
func (s Setup) Key() string {
	if strings.TrimSpace(s.CallSID) != "" {
		return s.CallSID
	}
	return s.SessionID
}

// Prompt carries one transcribed caller utterance.
type Prompt struct {
	Type        string `json:"type"`
	VoicePrompt string `json:"voicePrompt"`
	Lang        string `json:"lang,omitempty"`
	Last        bool   `json:"last,omitempty"`
}

// Interrupt signals the caller started speaking over the active response.
type Interrupt struct {
	Type                    string `json:"type"`
	UtteranceUntilInterrupt string `json:"utteranceUntilInterrupt,omitempty"`
	DurationUntilInterrupt  int64  `json:"durationUntilInterruptMs,omitempty"`
}

// DTMF carries a single keypad digit.
type DTMF struct {
	Type  string `json:"type"`
	Digit string `json:"digit"`
}

// InboundError is informational; the relay reports a delivery problem with
// a frame we sent. It is logged and otherwise ignored.
type InboundError struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Decode parses one inbound payload into a typed frame. A malformed payload
// yields a DecodeError; an unrecognized type yields an UnknownTypeError.
func Decode(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid message format", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "setup":
		var msg Setup
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid setup frame", "")
		}
		if strings.TrimSpace(msg.Key()) == "" {
			return nil, badRequest("setup requires callSid or sessionId", "callSid")
		}
		return msg, nil
	case "prompt":
		var msg Prompt
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid prompt frame", "")
		}
		return msg, nil
	case "interrupt":
		var msg Interrupt
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid interrupt frame", "")
		}
		return msg, nil
	case "dtmf":
		var msg DTMF
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid dtmf frame", "")
		}
		if strings.TrimSpace(msg.Digit) == "" {
			return nil, badRequest("dtmf.digit is required", "digit")
		}
		return msg, nil
	case "error":
		var msg InboundError
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid error frame", "")
		}
		return msg, nil
	default:
		return nil, &UnknownTypeError{Type: typ}
	}
}

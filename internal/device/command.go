// Package device talks to blinds hardware directly over the local network:
// stepper motor commands and WiFi provisioning.
package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCommand is returned for commands outside the firmware's limits.
var ErrInvalidCommand = errors.New("invalid command")

// CommandKind names a stepper command as the firmware spells it.
type CommandKind string

const (
	KindMove            CommandKind = "Move"
	KindSetSpeed        CommandKind = "SetSpeed"
	KindSetAcceleration CommandKind = "SetAcceleration"
	KindHome            CommandKind = "Home"
	KindStop            CommandKind = "Stop"
	KindStatus          CommandKind = "Status"
	KindPing            CommandKind = "Ping"
)

// Limits enforced by Validate.
const (
	MaxSteps        = 10000
	MaxSpeed        = 2000.0
	MaxAcceleration = 1000.0
)

// Command is one stepper instruction.
// Steps is used by Move; Value by SetSpeed and SetAcceleration.
type Command struct {
	Kind  CommandKind
	Steps int32
	Value float32
}

func Move(steps int32) Command { return Command{Kind: KindMove, Steps: steps} }
func SetSpeed(v float32) Command { return Command{Kind: KindSetSpeed, Value: v} }
func SetAcceleration(v float32) Command { return Command{Kind: KindSetAcceleration, Value: v} }
func Home() Command { return Command{Kind: KindHome} }
func Stop() Command { return Command{Kind: KindStop} }
func Status() Command { return Command{Kind: KindStatus} }
func Ping() Command { return Command{Kind: KindPing} }

func (c Command) String() string {
	switch c.Kind {
	case KindMove:
		return fmt.Sprintf("Move(%d)", c.Steps)
	case KindSetSpeed, KindSetAcceleration:
		return fmt.Sprintf("%s(%g)", c.Kind, c.Value)
	default:
		return string(c.Kind)
	}
}

// MarshalJSON encodes unit commands as a string and the rest as a one-key object.
func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindMove:
		return json.Marshal(map[string]int32{string(c.Kind): c.Steps})
	case KindSetSpeed, KindSetAcceleration:
		return json.Marshal(map[string]float32{string(c.Kind): c.Value})
	case KindHome, KindStop, KindStatus, KindPing:
		return json.Marshal(string(c.Kind))
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
	}
}

// Validate checks a command against the firmware's limits.
func Validate(c Command) error {
	switch c.Kind {
	case KindMove:
		if c.Steps > MaxSteps || c.Steps < -MaxSteps {
			return fmt.Errorf("%w: move steps must be between -%d and %d", ErrInvalidCommand, MaxSteps, MaxSteps)
		}
	case KindSetSpeed:
		if !(c.Value > 0 && c.Value <= MaxSpeed) || math.IsNaN(float64(c.Value)) {
			return fmt.Errorf("%w: speed must be above 0 and at most %g steps/sec", ErrInvalidCommand, MaxSpeed)
		}
	case KindSetAcceleration:
		if !(c.Value > 0 && c.Value <= MaxAcceleration) || math.IsNaN(float64(c.Value)) {
			return fmt.Errorf("%w: acceleration must be above 0 and at most %g steps/sec²", ErrInvalidCommand, MaxAcceleration)
		}
	case KindHome, KindStop, KindStatus, KindPing:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
	}
	return nil
}

// ParseCommand builds a command from CLI words, e.g. "move" "100".
func ParseCommand(name string, args ...string) (Command, error) {
	arg := func() (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%w: %s needs a value", ErrInvalidCommand, name)
		}
		return args[0], nil
	}

	switch strings.ToLower(name) {
	case "move":
		s, err := arg()
		if err != nil {
			return Command{}, err
		}
		steps, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("%w: steps %q: %v", ErrInvalidCommand, s, err)
		}
		return Move(int32(steps)), nil
	case "speed", "setspeed", "set-speed":
		v, err := parseFloatArg(arg)
		return SetSpeed(v), err
	case "accel", "acceleration", "setacceleration", "set-acceleration":
		v, err := parseFloatArg(arg)
		return SetAcceleration(v), err
	case "home":
		return Home(), nil
	case "stop":
		return Stop(), nil
	case "status":
		return Status(), nil
	case "ping":
		return Ping(), nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, name)
	}
}

func parseFloatArg(arg func() (string, error)) (float32, error) {
	s, err := arg()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q: %v", ErrInvalidCommand, s, err)
	}
	return float32(v), nil
}

// ResponseKind names a firmware reply.
type ResponseKind string

const (
	ResponseOk     ResponseKind = "Ok"
	ResponsePong   ResponseKind = "Pong"
	ResponseError  ResponseKind = "Error"
	ResponseStatus ResponseKind = "Status"
)

// MotorStatus is the payload of a Status reply.
type MotorStatus struct {
	Position int32   `json:"position"`
	Target   int32   `json:"target"`
	Speed    float32 `json:"speed"`
	Running  bool    `json:"running"`
}

// Response is one firmware reply.
type Response struct {
	Kind    ResponseKind
	Message string       // Error
	Status  *MotorStatus // Status
}

func (r Response) String() string {
	switch r.Kind {
	case ResponseError:
		return "Error: " + r.Message
	case ResponseStatus:
		if r.Status == nil {
			return string(r.Kind)
		}
		return fmt.Sprintf("Status{position=%d target=%d speed=%g running=%t}",
			r.Status.Position, r.Status.Target, r.Status.Speed, r.Status.Running)
	default:
		return string(r.Kind)
	}
}

// MarshalJSON mirrors UnmarshalJSON.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResponseError:
		return json.Marshal(map[string]string{string(r.Kind): r.Message})
	case ResponseStatus:
		return json.Marshal(map[string]*MotorStatus{string(r.Kind): r.Status})
	default:
		return json.Marshal(string(r.Kind))
	}
}

// UnmarshalJSON accepts "Ok", "Pong", {"Error":"..."} and {"Status":{...}}.
func (r *Response) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		switch ResponseKind(unit) {
		case ResponseOk, ResponsePong:
			*r = Response{Kind: ResponseKind(unit)}
			return nil
		}
		return fmt.Errorf("unknown response %q", unit)
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	if raw, ok := tagged[string(ResponseError)]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("invalid error response: %w", err)
		}
		*r = Response{Kind: ResponseError, Message: msg}
		return nil
	}
	if raw, ok := tagged[string(ResponseStatus)]; ok {
		var st MotorStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return fmt.Errorf("invalid status response: %w", err)
		}
		*r = Response{Kind: ResponseStatus, Status: &st}
		return nil
	}
	return fmt.Errorf("unknown response %s", data)
}

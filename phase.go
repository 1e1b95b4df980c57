package stoplight

import (
	"fmt"
	"strings"
)

// A Phase is the state of a traffic light. The zero Phase is Red.
type Phase int32

const (
	Red Phase = iota
	Green
)

// String returns the lower-case name of p.
func (p Phase) String() string {
	switch p {
	case Red:
		return "red"
	case Green:
		return "green"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Toggle returns the phase that follows p.
func (p Phase) Toggle() Phase {
	if p == Red {
		return Green
	}
	return Red
}

// ParsePhase returns the Phase whose name is s, ignoring case.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	}
	return Red, fmt.Errorf("invalid phase %q", s)
}

// MarshalText implements [encoding.TextMarshaler].
func (p Phase) MarshalText() ([]byte, error) {
	if p != Red && p != Green {
		return nil, fmt.Errorf("invalid phase %d", int32(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

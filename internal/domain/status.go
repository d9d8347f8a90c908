package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlightStatus is the lifecycle state of a flight. The zero value is not a
// valid status.
type FlightStatus int

const (
	StatusScheduled FlightStatus = iota + 1
	StatusDelayed
	StatusCancelled
	StatusInAir
	StatusLanded
)

var statusNames = map[FlightStatus]string{
	StatusScheduled: "Scheduled",
	StatusDelayed:   "Delayed",
	StatusCancelled: "Cancelled",
	StatusInAir:     "InAir",
	StatusLanded:    "Landed",
}

// FlightStatuses lists every defined status in declaration order.
func FlightStatuses() []FlightStatus {
	return []FlightStatus{StatusScheduled, StatusDelayed, StatusCancelled, StatusInAir, StatusLanded}
}

// Valid reports whether s is a defined member of the enumeration.
func (s FlightStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s FlightStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("FlightStatus(%d)", int(s))
}

// ParseFlightStatus resolves a status by name (case-insensitive).
func ParseFlightStatus(name string) (FlightStatus, error) {
	name = strings.TrimSpace(name)
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown flight status %q", name)
}

// MarshalJSON encodes defined statuses by name and anything else as its
// integer value.
func (s FlightStatus) MarshalJSON() ([]byte, error) {
	if n, ok := statusNames[s]; ok {
		return json.Marshal(n)
	}
	return json.Marshal(int(s))
}

// UnmarshalJSON accepts either the status name or its integer value. Integers
// outside the enumeration are kept so validation can report them.
func (s *FlightStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		v, err := ParseFlightStatus(name)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flight status must be a name or an integer: %w", err)
	}
	*s = FlightStatus(n)
	return nil
}

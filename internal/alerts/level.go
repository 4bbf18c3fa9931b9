// Package alerts holds the alert condition registry and the machinery
// that evaluates, stores and publishes alert conditions.
package alerts

import (
	"fmt"
	"strings"
)

// Level is an alert severity. Higher values are more severe.
type Level int

const (
	Low Level = iota + 1
	Moderate
	High
	Critical
)

var levelNames = map[Level]string{
	Low:      "low",
	Moderate: "moderate",
	High:     "high",
	Critical: "critical",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) Valid() bool {
	return l >= Low && l <= Critical
}

// ParseLevel accepts the lower-case level names, ignoring case and
// surrounding space.
func ParseLevel(s string) (Level, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == want {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown alert level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid alert level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

package alerts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

var ErrInvalidSpec = errors.New("invalid alert condition")

// ConditionSpec is the wire and storage form of a proximity condition.
type ConditionSpec struct {
	Name         string  `json:"name"`
	Level        string  `json:"level"`
	Description  string  `json:"description"`
	Enabled      *bool   `json:"enabled,omitempty"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_m"`
}

// Validate reports the first problem with s, wrapped in ErrInvalidSpec.
func (s ConditionSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}
	if _, err := ParseLevel(s.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if !geo.NewCoordinate2D(s.Latitude, s.Longitude).IsValid() {
		return fmt.Errorf("%w: target (%v, %v) out of range", ErrInvalidSpec, s.Latitude, s.Longitude)
	}
	if math.IsNaN(s.RadiusMeters) || math.IsInf(s.RadiusMeters, 0) || s.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidSpec, s.RadiusMeters)
	}
	return nil
}

// Build validates s and returns the condition it describes. Conditions
// are enabled unless the spec says otherwise.
func (s ConditionSpec) Build() (*Condition, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	level, _ := ParseLevel(s.Level)

	c := NewCondition(strings.TrimSpace(s.Name), level, s.Description, ProximityRule{
		Target:       geo.NewPoint(s.Longitude, s.Latitude, 0),
		RadiusMeters: s.RadiusMeters,
	})
	if s.Enabled != nil {
		c.SetEnabled(*s.Enabled)
	}
	return c, nil
}

// SpecOf describes c as a spec. ok is false when c's rule is not a
// ProximityRule.
func SpecOf(c *Condition) (spec ConditionSpec, ok bool) {
	rule, ok := c.Rule().(ProximityRule)
	if !ok {
		return ConditionSpec{}, false
	}
	enabled := c.Enabled()
	return ConditionSpec{
		Name:         c.Name(),
		Level:        c.Level().String(),
		Description:  c.Description(),
		Enabled:      &enabled,
		Latitude:     rule.Target.Y,
		Longitude:    rule.Target.X,
		RadiusMeters: rule.RadiusMeters,
	}, true
}

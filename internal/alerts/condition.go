package alerts

import (
	"sync"

	"github.com/relabs-tech/dsa_handheld/internal/event"
	"github.com/relabs-tech/dsa_handheld/internal/geo"
)

// Condition is a named, leveled rule that can be switched on and off.
// Every mutation that changes a value fires OnChanged.
type Condition struct {
	mu          sync.Mutex
	name        string
	level       Level
	description string
	enabled     bool
	rule        Rule

	changed event.Feed[*Condition]
}

// NewCondition returns an enabled condition.
func NewCondition(name string, level Level, description string, rule Rule) *Condition {
	return &Condition{
		name:        name,
		level:       level,
		description: description,
		enabled:     true,
		rule:        rule,
	}
}

func (c *Condition) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Condition) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

func (c *Condition) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

func (c *Condition) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Condition) Rule() Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rule
}

func (c *Condition) SetName(name string) {
	c.update(func() bool {
		if c.name == name {
			return false
		}
		c.name = name
		return true
	})
}

func (c *Condition) SetLevel(level Level) {
	c.update(func() bool {
		if c.level == level {
			return false
		}
		c.level = level
		return true
	})
}

func (c *Condition) SetDescription(description string) {
	c.update(func() bool {
		if c.description == description {
			return false
		}
		c.description = description
		return true
	})
}

func (c *Condition) SetEnabled(enabled bool) {
	c.update(func() bool {
		if c.enabled == enabled {
			return false
		}
		c.enabled = enabled
		return true
	})
}

// SetRule replaces the rule. Rules are not comparable, so this always
// notifies.
func (c *Condition) SetRule(rule Rule) {
	c.update(func() bool {
		c.rule = rule
		return true
	})
}

// Matches reports whether the condition is enabled and its rule holds
// at location.
func (c *Condition) Matches(location geo.Point) bool {
	c.mu.Lock()
	enabled, rule := c.enabled, c.rule
	c.mu.Unlock()

	return enabled && rule != nil && rule.Matches(location)
}

// OnChanged is notified after any mutation. Listeners must not mutate
// the same condition synchronously.
func (c *Condition) OnChanged(fn func(*Condition)) *event.Subscription {
	return c.changed.Subscribe(fn)
}

func (c *Condition) update(apply func() bool) {
	c.mu.Lock()
	changed := apply()
	c.mu.Unlock()

	if changed {
		c.changed.Send(c)
	}
}

package alerts

import (
	"slices"
	"sync"

	"github.com/relabs-tech/dsa_handheld/internal/event"
)

// Role selects a column of a condition row.
type Role int

const (
	RoleName Role = iota + 1
	RoleLevel
	RoleDescription
	RoleConditionEnabled
)

// RowEventKind tells list observers how the rows changed.
type RowEventKind int

const (
	RowsInserted RowEventKind = iota
	RowsAboutToBeRemoved
	RowsRemoved
	DataChanged
)

func (k RowEventKind) String() string {
	switch k {
	case RowsInserted:
		return "inserted"
	case RowsAboutToBeRemoved:
		return "about_to_be_removed"
	case RowsRemoved:
		return "removed"
	case DataChanged:
		return "data_changed"
	default:
		return "unknown"
	}
}

type RowEvent struct {
	Kind RowEventKind
	Row  int
}

// watch is the single change subscription held for a condition, shared
// by every row that holds it.
type watch struct {
	sub  *event.Subscription
	rows int
}

// ConditionListModel is an ordered registry of alert conditions exposed
// as rows. It does not own the conditions: removing a row leaves the
// condition untouched. The same condition may occupy several rows.
//
// Row event listeners run synchronously and must not add, remove or set
// data on the model from inside the callback.
type ConditionListModel struct {
	writeMu sync.Mutex // serializes membership changes and SetData

	mu         sync.Mutex
	conditions []*Condition
	watches    map[*Condition]*watch
	suppressed map[*Condition]int

	events event.Feed[RowEvent]
}

func NewConditionListModel() *ConditionListModel {
	return &ConditionListModel{
		watches:    make(map[*Condition]*watch),
		suppressed: make(map[*Condition]int),
	}
}

var roleNames = map[Role]string{
	RoleName:             "name",
	RoleLevel:            "level",
	RoleDescription:      "description",
	RoleConditionEnabled: "conditionEnabled",
}

// RoleNames maps each role to the key views use to address it.
func (m *ConditionListModel) RoleNames() map[Role]string {
	out := make(map[Role]string, len(roleNames))
	for role, name := range roleNames {
		out[role] = name
	}
	return out
}

// OnRowEvent subscribes to row insertions, removals and data changes.
func (m *ConditionListModel) OnRowEvent(fn func(RowEvent)) *event.Subscription {
	return m.events.Subscribe(fn)
}

// AddAlertCondition appends c as the last row. It returns false only
// for a nil condition.
func (m *ConditionListModel) AddAlertCondition(c *Condition) bool {
	if c == nil {
		return false
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	w, watched := m.watches[c]
	m.mu.Unlock()

	if !watched {
		// Subscribing outside m.mu: the change callback takes m.mu.
		w = &watch{sub: c.OnChanged(m.conditionChanged)}
	}

	m.mu.Lock()
	w.rows++
	m.watches[c] = w
	m.conditions = append(m.conditions, c)
	row := len(m.conditions) - 1
	m.mu.Unlock()

	m.events.Send(RowEvent{Kind: RowsInserted, Row: row})
	return true
}

// ConditionAt returns the condition at row, or nil when out of range.
func (m *ConditionListModel) ConditionAt(row int) *Condition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conditionAtLocked(row)
}

func (m *ConditionListModel) conditionAtLocked(row int) *Condition {
	if row < 0 || row >= len(m.conditions) {
		return nil
	}
	return m.conditions[row]
}

// RemoveAt drops row. Out-of-range rows are ignored. The condition's
// change subscription is released once no row holds it.
func (m *ConditionListModel) RemoveAt(row int) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if m.ConditionAt(row) == nil {
		return
	}

	m.events.Send(RowEvent{Kind: RowsAboutToBeRemoved, Row: row})

	m.mu.Lock()
	c := m.conditions[row]
	m.conditions = slices.Delete(m.conditions, row, row+1)
	var release *event.Subscription
	if w := m.watches[c]; w != nil {
		w.rows--
		if w.rows <= 0 {
			delete(m.watches, c)
			release = w.sub
		}
	}
	m.mu.Unlock()

	m.events.Send(RowEvent{Kind: RowsRemoved, Row: row})

	// Unsubscribe waits for an in-flight change callback, which takes m.mu.
	release.Unsubscribe()
}

func (m *ConditionListModel) RowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conditions)
}

// Conditions returns the rows in order.
func (m *ConditionListModel) Conditions() []*Condition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.conditions)
}

// RowsOf returns every row currently holding c, found by identity.
func (m *ConditionListModel) RowsOf(c *Condition) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rowsOfLocked(c)
}

func (m *ConditionListModel) rowsOfLocked(c *Condition) []int {
	var rows []int
	for i, candidate := range m.conditions {
		if candidate == c {
			rows = append(rows, i)
		}
	}
	return rows
}

// Data returns the value of role at row. Level is reported as its
// integer value.
func (m *ConditionListModel) Data(row int, role Role) (any, bool) {
	c := m.ConditionAt(row)
	if c == nil {
		return nil, false
	}

	switch role {
	case RoleName:
		return c.Name(), true
	case RoleLevel:
		return int(c.Level()), true
	case RoleDescription:
		return c.Description(), true
	case RoleConditionEnabled:
		return c.Enabled(), true
	default:
		return nil, false
	}
}

// SetData writes value to role at row. Only RoleConditionEnabled with a
// bool value is writable. A successful write emits exactly one
// DataChanged for row, followed by one for each other row holding the
// same condition when the value changed.
func (m *ConditionListModel) SetData(row int, role Role, value any) bool {
	if value == nil {
		return false
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	c := m.ConditionAt(row)
	if c == nil {
		return false
	}

	switch role {
	case RoleName:
		return false
	case RoleLevel:
		return false
	case RoleDescription:
		return false
	case RoleConditionEnabled:
		enabled, ok := value.(bool)
		if !ok {
			return false
		}
		changed := c.Enabled() != enabled
		m.setSuppressed(c, 1)
		c.SetEnabled(enabled)
		m.setSuppressed(c, -1)

		m.events.Send(RowEvent{Kind: DataChanged, Row: row})
		if changed {
			m.notifyOtherRows(c, row)
		}
		return true
	default:
		return false
	}
}

// notifyOtherRows sends DataChanged for the rows other than row that
// hold c.
func (m *ConditionListModel) notifyOtherRows(c *Condition, row int) {
	m.mu.Lock()
	rows := m.rowsOfLocked(c)
	m.mu.Unlock()

	for _, r := range rows {
		if r != row {
			m.events.Send(RowEvent{Kind: DataChanged, Row: r})
		}
	}
}

func (m *ConditionListModel) setSuppressed(c *Condition, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.suppressed[c] + delta; n > 0 {
		m.suppressed[c] = n
	} else {
		delete(m.suppressed, c)
	}
}

// conditionChanged re-broadcasts a condition's change as DataChanged on
// every row holding it. Rows are resolved now since they shift on removal.
func (m *ConditionListModel) conditionChanged(c *Condition) {
	m.mu.Lock()
	if m.suppressed[c] > 0 {
		m.mu.Unlock()
		return
	}
	rows := m.rowsOfLocked(c)
	m.mu.Unlock()

	for _, row := range rows {
		m.events.Send(RowEvent{Kind: DataChanged, Row: row})
	}
}

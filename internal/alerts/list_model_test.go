package alerts

import (
	"testing"
)

type rowRecorder struct {
	events []RowEvent
}

func recordRows(m *ConditionListModel) *rowRecorder {
	r := &rowRecorder{}
	m.OnRowEvent(func(e RowEvent) { r.events = append(r.events, e) })
	return r
}

func (r *rowRecorder) count(kind RowEventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newTestCondition(name string) *Condition {
	return NewCondition(name, Moderate, name+" description", nil)
}

func TestConditionListModel_AddNil(t *testing.T) {
	m := NewConditionListModel()
	if m.AddAlertCondition(nil) {
		t.Fatalf("AddAlertCondition(nil) = true")
	}
	if m.RowCount() != 0 {
		t.Fatalf("RowCount = %d, want 0", m.RowCount())
	}
}

func TestConditionListModel_AddAppends(t *testing.T) {
	m := NewConditionListModel()
	rec := recordRows(m)

	a, b := newTestCondition("a"), newTestCondition("b")
	if !m.AddAlertCondition(a) || !m.AddAlertCondition(b) {
		t.Fatalf("AddAlertCondition failed")
	}

	if m.RowCount() != 2 || m.ConditionAt(1) != b || m.ConditionAt(0) != a {
		t.Fatalf("rows not in insertion order")
	}
	want := []RowEvent{{RowsInserted, 0}, {RowsInserted, 1}}
	if len(rec.events) != len(want) || rec.events[0] != want[0] || rec.events[1] != want[1] {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
}

func TestConditionListModel_ConditionAtOutOfRange(t *testing.T) {
	m := NewConditionListModel()
	m.AddAlertCondition(newTestCondition("a"))
	for _, row := range []int{-1, 1, 100} {
		if m.ConditionAt(row) != nil {
			t.Fatalf("ConditionAt(%d) should be nil", row)
		}
		if _, ok := m.Data(row, RoleName); ok {
			t.Fatalf("Data(%d) should be invalid", row)
		}
	}
}

func TestConditionListModel_RemoveAt(t *testing.T) {
	m := NewConditionListModel()
	a, b, c := newTestCondition("a"), newTestCondition("b"), newTestCondition("c")
	m.AddAlertCondition(a)
	m.AddAlertCondition(b)
	m.AddAlertCondition(c)
	rec := recordRows(m)

	m.RemoveAt(5)
	m.RemoveAt(-1)
	if len(rec.events) != 0 || m.RowCount() != 3 {
		t.Fatalf("out-of-range RemoveAt changed the model")
	}

	m.RemoveAt(1)
	if m.RowCount() != 2 || m.ConditionAt(1) != c {
		t.Fatalf("later rows did not shift down")
	}
	want := []RowEvent{{RowsAboutToBeRemoved, 1}, {RowsRemoved, 1}}
	if len(rec.events) != 2 || rec.events[0] != want[0] || rec.events[1] != want[1] {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}

	// removed conditions are no longer observed
	rec.events = nil
	b.SetEnabled(false)
	if len(rec.events) != 0 {
		t.Fatalf("removed condition still re-broadcast: %v", rec.events)
	}
	if b.Name() != "b" {
		t.Fatalf("removed condition was modified")
	}
}

func TestConditionListModel_ChangeFollowsShiftedRow(t *testing.T) {
	m := NewConditionListModel()
	a, b := newTestCondition("a"), newTestCondition("b")
	m.AddAlertCondition(a)
	m.AddAlertCondition(b)
	m.RemoveAt(0)
	rec := recordRows(m)

	b.SetDescription("moved")
	if len(rec.events) != 1 || rec.events[0] != (RowEvent{DataChanged, 0}) {
		t.Fatalf("events = %v, want DataChanged(0)", rec.events)
	}

	// no-op mutation does not notify
	b.SetDescription("moved")
	if len(rec.events) != 1 {
		t.Fatalf("unchanged value notified")
	}
}

func TestConditionListModel_Duplicates(t *testing.T) {
	m := NewConditionListModel()
	a := newTestCondition("a")
	m.AddAlertCondition(a)
	m.AddAlertCondition(newTestCondition("x"))
	m.AddAlertCondition(a)
	rec := recordRows(m)

	a.SetLevel(Critical)
	if rec.count(DataChanged) != 2 {
		t.Fatalf("DataChanged = %d, want one per row", rec.count(DataChanged))
	}
	rows := m.RowsOf(a)
	if len(rows) != 2 || rows[0] != 0 || rows[1] != 2 {
		t.Fatalf("RowsOf = %v, want [0 2]", rows)
	}

	rec.events = nil
	if !m.SetData(2, RoleConditionEnabled, false) {
		t.Fatal("SetData on a duplicate row failed")
	}
	want := []RowEvent{{DataChanged, 2}, {DataChanged, 0}}
	if len(rec.events) != len(want) || rec.events[0] != want[0] || rec.events[1] != want[1] {
		t.Fatalf("events after SetData = %v, want %v", rec.events, want)
	}
	if enabled, _ := m.Data(0, RoleConditionEnabled); enabled != false {
		t.Fatalf("row 0 enabled = %v, want false", enabled)
	}

	rec.events = nil
	m.SetData(2, RoleConditionEnabled, false)
	if len(rec.events) != 1 || rec.events[0] != (RowEvent{DataChanged, 2}) {
		t.Fatalf("events after unchanged SetData = %v, want only row 2", rec.events)
	}

	m.RemoveAt(0)
	rec.events = nil
	a.SetLevel(High)
	if len(rec.events) != 1 || rec.events[0] != (RowEvent{DataChanged, 1}) {
		t.Fatalf("events after removing one copy = %v", rec.events)
	}
	if a.changed.Len() != 1 {
		t.Fatalf("subscriptions on a = %d, want 1", a.changed.Len())
	}

	m.RemoveAt(1)
	if a.changed.Len() != 0 {
		t.Fatalf("subscription not released with the last row")
	}
}

func TestConditionListModel_Data(t *testing.T) {
	m := NewConditionListModel()
	m.AddAlertCondition(NewCondition("fire", Critical, "smoke seen", nil))

	tests := []struct {
		role Role
		want any
	}{
		{RoleName, "fire"},
		{RoleLevel, 4},
		{RoleDescription, "smoke seen"},
		{RoleConditionEnabled, true},
	}
	for _, tt := range tests {
		got, ok := m.Data(0, tt.role)
		if !ok || got != tt.want {
			t.Fatalf("Data(0, %d) = %v, %v; want %v", tt.role, got, ok, tt.want)
		}
	}
	if _, ok := m.Data(0, Role(99)); ok {
		t.Fatalf("unknown role returned data")
	}

	names := m.RoleNames()
	if names[RoleConditionEnabled] != "conditionEnabled" || len(names) != 4 {
		t.Fatalf("RoleNames = %v", names)
	}
}

func TestConditionListModel_SetData(t *testing.T) {
	m := NewConditionListModel()
	c := newTestCondition("a")
	m.AddAlertCondition(c)
	rec := recordRows(m)

	if !m.SetData(0, RoleConditionEnabled, false) {
		t.Fatalf("SetData(enabled=false) failed")
	}
	if c.Enabled() {
		t.Fatalf("condition still enabled")
	}
	if len(rec.events) != 1 || rec.events[0] != (RowEvent{DataChanged, 0}) {
		t.Fatalf("events = %v, want exactly one DataChanged(0)", rec.events)
	}

	rec.events = nil
	rejected := []struct {
		name  string
		row   int
		role  Role
		value any
	}{
		{"name role", 0, RoleName, "renamed"},
		{"level role", 0, RoleLevel, 3},
		{"description role", 0, RoleDescription, "x"},
		{"unknown role", 0, Role(42), true},
		{"nil value", 0, RoleConditionEnabled, nil},
		{"non-bool value", 0, RoleConditionEnabled, "true"},
		{"bad row", 3, RoleConditionEnabled, true},
	}
	for _, tt := range rejected {
		if m.SetData(tt.row, tt.role, tt.value) {
			t.Fatalf("%s: SetData succeeded", tt.name)
		}
	}
	if len(rec.events) != 0 {
		t.Fatalf("rejected writes emitted %v", rec.events)
	}
	if c.Name() != "a" || c.Enabled() {
		t.Fatalf("rejected writes modified the condition")
	}

	// suppression is scoped to the SetData call
	c.SetEnabled(true)
	if len(rec.events) != 1 {
		t.Fatalf("external change not re-broadcast after SetData")
	}
}

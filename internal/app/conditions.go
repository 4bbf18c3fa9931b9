package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/dsa_handheld/internal/alerts"
	"github.com/relabs-tech/dsa_handheld/internal/metrics"
)

var ErrNoSuchRow = errors.New("no such condition row")

// ConditionRow is one registry row as the UI sees it.
type ConditionRow struct {
	Row int `json:"row"`
	alerts.ConditionSpec
}

// ConditionService applies condition edits to the registry and, when a
// store is configured, persists them. Conditions are unique by name at
// this layer: saving a spec replaces the rows holding its name.
type ConditionService struct {
	model *alerts.ConditionListModel
	store *alerts.Store // nil when DATABASE_URL is unset

	mu sync.Mutex // serializes edits
}

func NewConditionService(model *alerts.ConditionListModel, store *alerts.Store) *ConditionService {
	return &ConditionService{model: model, store: store}
}

func (s *ConditionService) Model() *alerts.ConditionListModel {
	return s.model
}

// Restore loads stored conditions into the registry.
func (s *ConditionService) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	specs, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, spec := range specs {
		c, err := spec.Build()
		if err != nil {
			log.Printf("conditions: skipping stored %q: %v", spec.Name, err)
			continue
		}
		s.model.AddAlertCondition(c)
		restored++
	}
	metrics.AlertConditions.Set(float64(s.model.RowCount()))
	return restored, nil
}

// Save adds spec as the last row, replacing rows with the same name, and
// returns its row.
func (s *ConditionService) Save(ctx context.Context, spec alerts.ConditionSpec) (int, error) {
	c, err := spec.Build()
	if err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, spec); err != nil {
			return -1, err
		}
	}

	s.removeNamedLocked(c.Name())
	s.model.AddAlertCondition(c)
	metrics.AlertConditions.Set(float64(s.model.RowCount()))
	return s.model.RowCount() - 1, nil
}

// Remove drops row from the registry and the store.
func (s *ConditionService) Remove(ctx context.Context, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.model.ConditionAt(row)
	if c == nil {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, row)
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, c.Name()); err != nil {
			return err
		}
	}
	s.model.RemoveAt(row)
	metrics.AlertConditions.Set(float64(s.model.RowCount()))
	return nil
}

// SetEnabled switches the condition at row on or off through the
// registry's writable role.
func (s *ConditionService) SetEnabled(ctx context.Context, row int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.model.SetData(row, alerts.RoleConditionEnabled, enabled) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, row)
	}
	if s.store == nil {
		return nil
	}
	spec, ok := alerts.SpecOf(s.model.ConditionAt(row))
	if !ok {
		return nil
	}
	return s.store.Save(ctx, spec)
}

// List describes every row. It only reads the registry, so row event
// listeners may call it.
func (s *ConditionService) List() []ConditionRow {
	conditions := s.model.Conditions()
	rows := make([]ConditionRow, 0, len(conditions))
	for i, c := range conditions {
		spec, ok := alerts.SpecOf(c)
		if !ok {
			enabled := c.Enabled()
			spec = alerts.ConditionSpec{
				Name:        c.Name(),
				Level:       c.Level().String(),
				Description: c.Description(),
				Enabled:     &enabled,
			}
		}
		rows = append(rows, ConditionRow{Row: i, ConditionSpec: spec})
	}
	return rows
}

// HandleDefinition applies a condition definition received on the
// conditions topic.
func (s *ConditionService) HandleDefinition(ctx context.Context, payload []byte) error {
	var spec alerts.ConditionSpec
	if err := json.Unmarshal(payload, &spec); err != nil {
		return fmt.Errorf("decode condition: %w", err)
	}
	_, err := s.Save(ctx, spec)
	return err
}

func (s *ConditionService) removeNamedLocked(name string) {
	for row := s.model.RowCount() - 1; row >= 0; row-- {
		if c := s.model.ConditionAt(row); c != nil && c.Name() == name {
			s.model.RemoveAt(row)
		}
	}
}

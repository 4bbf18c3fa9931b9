package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs []execCall
	rows  [][]any
	err   error
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, db.err
}

func (db *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if db.err != nil {
		return nil, db.err
	}
	return &fakeRows{data: db.rows, pos: -1}, nil
}

// fakeRows serves canned rows to Scan.
type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *bool:
			*p = row[i].(bool)
		case *float64:
			*p = row[i].(float64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func TestStore_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewStore(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0].sql, "CREATE TABLE IF NOT EXISTS alert_conditions") {
		t.Fatalf("unexpected statements %+v", db.execs)
	}
}

func TestStore_SaveNormalizesAndDefaultsEnabled(t *testing.T) {
	db := &fakeDB{}
	spec := ConditionSpec{Name: "depot", Level: "HIGH", Latitude: 48.1, Longitude: 11.5, RadiusMeters: 100}

	if err := NewStore(db).Save(context.Background(), spec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	args := db.execs[0].args
	if args[0] != "depot" || args[1] != "high" || args[3] != true {
		t.Fatalf("args = %v", args)
	}
	if !strings.Contains(db.execs[0].sql, "ON CONFLICT (name)") {
		t.Fatalf("Save is not an upsert")
	}
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	db := &fakeDB{}
	err := NewStore(db).Save(context.Background(), ConditionSpec{Name: "x", Level: "low"})
	if !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("err = %v, want ErrInvalidSpec", err)
	}
	if len(db.execs) != 0 {
		t.Fatalf("invalid spec reached the database")
	}
}

func TestStore_LoadAll(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"depot", "high", "restricted", true, 48.1, 11.5, 100.0},
		{"river", "low", "", false, 48.2, 11.6, 50.0},
	}}

	specs, err := NewStore(db).LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(specs) != 2 || specs[1].Name != "river" || *specs[1].Enabled {
		t.Fatalf("specs = %+v", specs)
	}
	c, err := specs[0].Build()
	if err != nil || c.Level() != High {
		t.Fatalf("stored spec did not build: %v", err)
	}
}

func TestStore_WrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	db := &fakeDB{err: boom}
	s := NewStore(db)

	if _, err := s.LoadAll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("LoadAll err = %v", err)
	}
	if err := s.Delete(context.Background(), "depot"); !errors.Is(err, boom) {
		t.Fatalf("Delete err = %v", err)
	}
}

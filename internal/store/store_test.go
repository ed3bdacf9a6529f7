package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/engine"
	"github.com/roach88/oqlc/internal/model"
	"github.com/roach88/oqlc/internal/plan"
	"github.com/roach88/oqlc/internal/testutil"
)

// createTestStore opens an in-memory store over the fixture catalog.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath, testutil.Catalog())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDDL_FixtureCatalog(t *testing.T) {
	ddl, err := DDL(testutil.Catalog())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create table if not exists company (id bigint not null, name varchar, reg_no varchar, primary key (id))",
		"create table if not exists employee (id bigint not null, salary numeric, primary key (id))",
		"create table if not exists parcel (id bigint not null, label varchar, shipment_order_no bigint, shipment_line_no integer, primary key (id))",
		"create table if not exists person (id bigint not null, name varchar, age integer, status varchar, street varchar, city varchar, employer_id bigint, registrar_reg_no varchar, primary key (id))",
		"create table if not exists phone (id bigint not null, number varchar, kind varchar, person_id bigint, primary key (id))",
		"create table if not exists project (id bigint not null, title varchar, primary key (id))",
		"create table if not exists shipment (order_no bigint not null, line_no integer not null, weight double precision, primary key (order_no, line_no))",
		"create table if not exists person_project (person_id bigint, project_id bigint)",
		"create table if not exists person_nickname (person_id bigint, nickname varchar)",
	}, ddl)
}

func TestTables_ColumnTypeConflict(t *testing.T) {
	child := model.NewEntity("Child", "child").ID("id", model.String, "id")
	parent := model.NewEntity("Parent", "parent").
		ID("id", model.Long, "id").
		OneToMany("children", child, model.CollectionMapping{
			Table:          "child",
			KeyColumns:     []string{"id"},
			ElementColumns: []string{"id"},
		})

	c := model.NewCatalog()
	require.NoError(t, c.AddEntity(child, parent))
	require.NoError(t, c.Freeze())

	_, err := Tables(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column child.id declared as varchar and bigint")
}

func TestOpen_CreatesTables(t *testing.T) {
	s := createTestStore(t)

	names, err := s.TableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"company", "employee", "parcel", "person", "person_nickname",
		"person_project", "phone", "project", "shipment",
	}, names)
	assert.Len(t, s.Tables(), 9)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "check.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path, testutil.Catalog())
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestCheck_CompiledPlans(t *testing.T) {
	s := createTestStore(t)
	e := engine.New(testutil.Catalog(), testutil.Symbols(),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	testCases := []struct {
		name string
		doc  string
	}{
		{
			name: "inferred entity selection with subtype",
			doc:  "from: [{root: {entity: Person, alias: p}}]",
		},
		{
			name: "subtype root",
			doc:  "select: {items: [{expr: {path: e.name}}, {expr: {path: e.salary}}]}\nfrom: [{root: {entity: Employee, alias: e}}]",
		},
		{
			name: "composite key join",
			doc: `
select: {items: [{expr: {path: x.label}}]}
from:
  - root: {entity: Parcel, alias: x}
    joins: [{join: x.shipment, alias: s, type: left}]
where: {eq: [{path: x.shipment}, {param: key}]}
`,
		},
		{
			name: "collection joins",
			doc: `
select: {items: [{expr: {path: p.name}}, {expr: {path: n}}, {expr: {path: pr.title}}]}
from:
  - root: {entity: Person, alias: p}
    joins:
      - {join: p.nicknames, alias: n}
      - {join: p.projects, alias: pr}
`,
		},
		{
			name: "is empty and member of",
			doc: `
select: {items: [{expr: {path: p.name}}]}
from: [{root: {entity: Person, alias: p}}]
where:
  and:
    - is_empty: {path: p.phones}
    - member_of: {expr: {param: proj}, collection: {path: p.projects}}
`,
		},
		{
			name: "order by with collation",
			doc: `
select: {items: [{expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
order_by: [{expr: {path: c.name}, collate: nocase, direction: desc}]
`,
		},
		{
			name: "update",
			doc:  "update: {entity: Person, alias: p, set: [{path: p.address, value: {param: addr}}], where: {eq: [{path: p.id}, {pos: 1}]}}",
		},
		{
			name: "delete",
			doc:  "delete: {entity: Company, where: {is_null: {path: name}}}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := e.CompileDocument(context.Background(), []byte(tc.doc))
			require.NoError(t, err)
			assert.NoError(t, s.Check(context.Background(), p))
		})
	}
}

func TestCheck_Failures(t *testing.T) {
	s := createTestStore(t)

	testCases := []struct {
		name string
		plan *plan.Plan
		msg  string
	}{
		{
			name: "unknown table",
			plan: &plan.Plan{SQL: "select x1_0.id from nowhere x1_0"},
			msg:  "no such table",
		},
		{
			name: "unknown column",
			plan: &plan.Plan{SQL: "select c1_0.salary from company c1_0"},
			msg:  "no such column",
		},
		{
			name: "binder count mismatch",
			plan: &plan.Plan{SQL: "select c1_0.id from company c1_0 where c1_0.id=?"},
			msg:  "statement has 1 parameters but the plan has 0 binders",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Check(context.Background(), tc.plan)
			require.Error(t, err)
			assert.True(t, IsCheckError(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

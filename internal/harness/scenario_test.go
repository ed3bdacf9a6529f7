package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
dialect: ansi
query:
  from: [{root: {entity: Company, alias: c}}]
expect:
  sql: "select c1_0.id from company c1_0"
  statement: select
  binders: []
assertions:
  - type: sql_contains
    text: company
  - type: binder_count
    count: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "ansi", scenario.Dialect)
	assert.Equal(t, yaml.MappingNode, scenario.Query.Kind)
	assert.Equal(t, "select c1_0.id from company c1_0", scenario.Expect.SQL)
	assert.NotNil(t, scenario.Expect.Binders)
	assert.Empty(t, scenario.Expect.Binders)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertSQLContains, scenario.Assertions[0].Type)
	assert.Equal(t, "company", scenario.Assertions[0].Text)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	const query = "query: {from: [{root: {entity: Company, alias: c}}]}\n"
	const header = "name: s\ndescription: d\n"

	testCases := []struct {
		name string
		doc  string
		msg  string
	}{
		{
			name: "unknown field",
			doc:  header + query + "expect: {sql: x}\nflow: []\n",
			msg:  "field flow not found",
		},
		{
			name: "missing name",
			doc:  "description: d\n" + query + "expect: {sql: x}\n",
			msg:  "name is required",
		},
		{
			name: "missing description",
			doc:  "name: s\n" + query + "expect: {sql: x}\n",
			msg:  "description is required",
		},
		{
			name: "missing query",
			doc:  header + "expect: {sql: x}\n",
			msg:  "query is required",
		},
		{
			name: "unknown dialect",
			doc:  header + "dialect: oracle\n" + query + "expect: {sql: x}\n",
			msg:  "oracle",
		},
		{
			name: "empty expect",
			doc:  header + query + "expect: {}\n",
			msg:  "expect requires sql or error",
		},
		{
			name: "sql and error",
			doc:  header + query + "expect: {sql: x, error: SEMANTIC}\n",
			msg:  "not both",
		},
		{
			name: "unknown error kind",
			doc:  header + query + "expect: {error: BOOM}\n",
			msg:  `unknown error kind "BOOM"`,
		},
		{
			name: "unknown stage",
			doc:  header + query + "expect: {error: SEMANTIC, stage: parse}\n",
			msg:  `unknown stage "parse"`,
		},
		{
			name: "stage without error",
			doc:  header + query + "expect: {sql: x, stage: lower}\n",
			msg:  "expect.stage requires expect.error",
		},
		{
			name: "error with binders",
			doc:  header + query + "expect: {error: SEMANTIC, binders: []}\n",
			msg:  "cannot be combined",
		},
		{
			name: "error with assertions",
			doc:  header + query + "expect: {error: SEMANTIC}\nassertions: [{type: prepares}]\n",
			msg:  "assertions require a successful compilation",
		},
		{
			name: "assertion without type",
			doc:  header + query + "expect: {sql: x}\nassertions: [{text: y}]\n",
			msg:  "assertions[0]: type is required",
		},
		{
			name: "unknown assertion",
			doc:  header + query + "expect: {sql: x}\nassertions: [{type: trace_order}]\n",
			msg:  `unknown type "trace_order"`,
		},
		{
			name: "contains without text",
			doc:  header + query + "expect: {sql: x}\nassertions: [{type: prepares}, {type: sql_contains}]\n",
			msg:  "assertions[1]: sql_contains requires text",
		},
		{
			name: "negative count",
			doc:  header + query + "expect: {sql: x}\nassertions: [{type: binder_count, count: -1}]\n",
			msg:  "non-negative",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestLoadScenarios_Directory(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	assert.Contains(t, names, "company_by_name")
	assert.Contains(t, names, "unknown_entity")
	assert.IsNonDecreasing(t, names)
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	doc := "name: same\ndescription: d\nquery: {from: [{root: {entity: Company}}]}\nexpect: {sql: x}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(doc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(doc), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "same" already defined in a.yaml`)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
	assert.Contains(t, err.Error(), "description is required")
}

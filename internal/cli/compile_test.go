package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/plan"
	"github.com/roach88/oqlc/internal/testutil"
)

func TestCompile_Text(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)

	stdout, _, code := run(t, "compile", "--schema", testutil.SchemaDir(), query)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "✓ Compiled select statement (sqlite)")
	assert.Contains(t, stdout, "select c1_0.name from company c1_0 where c1_0.name=?")
	assert.Contains(t, stdout, "Binders:\n  1. :name string")
	assert.Contains(t, stdout, "Returns:\n  1. scalar string (1 column)")
}

func TestCompile_JSON(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)

	stdout, _, code := run(t, "compile", "--format", "json", "--schema", testutil.SchemaDir(), query)
	require.Equal(t, ExitSuccess, code, stdout)

	var resp struct {
		Status string    `json:"status"`
		Data   plan.Plan `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "select c1_0.name from company c1_0 where c1_0.name=?", resp.Data.SQL)
	assert.Equal(t, "select", resp.Data.StatementType)
	require.Len(t, resp.Data.Binders, 1)
	assert.Equal(t, "name", resp.Data.Binders[0].Name)
}

func TestCompile_OutputToFile(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)
	outputFile := filepath.Join(t.TempDir(), "plan.json")

	stdout, _, code := run(t, "compile", "--schema", testutil.SchemaDir(), query, "-o", outputFile)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "Wrote plan to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	var p plan.Plan
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "select c1_0.name from company c1_0 where c1_0.name=?", p.SQL)
	assert.Equal(t, "sqlite", p.Dialect)
}

func TestCompile_QueryErrors(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		code  string
		stage string
	}{
		{"unknown entity", "from: [{root: {entity: Nope, alias: n}}]", "UNRESOLVED_NAME", "analyze"},
		{"collection value", "select: {items: [{expr: {path: p.phones}}]}\nfrom: [{root: {entity: Person, alias: p}}]", "SEMANTIC", "lower"},
		{"malformed tree", "from: [{root: {entity: Person}}]\nlimit: 3", "OTHER", "decode"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			query := writeFile(t, "q.yaml", tc.doc)

			stdout, _, code := run(t, "compile", "--schema", testutil.SchemaDir(), query)
			assert.Equal(t, ExitFailure, code)
			assert.Contains(t, stdout, "Error ["+tc.code+"]")

			stdout, _, code = run(t, "compile", "--format", "json", "--schema", testutil.SchemaDir(), query)
			assert.Equal(t, ExitFailure, code)
			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
			details, ok := resp.Error.Details.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tc.stage, details["stage"])
		})
	}
}

func TestCompile_ErrorCarriesCompilationToken(t *testing.T) {
	query := writeFile(t, "q.yaml", "from: [{root: {entity: Nope, alias: n}}]")

	stdout, _, _ := run(t, "compile", "--format", "json", "--schema", testutil.SchemaDir(), query)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	details := resp.Error.Details.(map[string]any)
	token, ok := details["compilation"].(string)
	require.True(t, ok)
	assert.Len(t, token, 36)
}

func TestCompile_CommandErrors(t *testing.T) {
	badSchema := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(badSchema, "bad.cue"),
		[]byte("entity: A: {\n\ttable: \"a\"\n\tid: {name: \"id\", type: \"long\"}\n\tattributes: x: {type: \"blob\"}\n}\n"), 0644))
	query := writeFile(t, "q.yaml", companyByName)

	testCases := []struct {
		name string
		args []string
		msgs []string
	}{
		{
			name: "missing query",
			args: []string{"--schema", testutil.SchemaDir(), filepath.Join(t.TempDir(), "none.yaml")},
			msgs: []string{"Error [E005]", "query file not found"},
		},
		{
			name: "empty schema directory",
			args: []string{"--schema", t.TempDir(), query},
			msgs: []string{"Error [E003]", "no CUE files found"},
		},
		{
			name: "missing schema directory",
			args: []string{"--schema", filepath.Join(t.TempDir(), "gone"), query},
			msgs: []string{"Error [E003]", "schema directory"},
		},
		{
			name: "invalid schema",
			args: []string{"--schema", badSchema, "--verbose", query},
			msgs: []string{"Error [E003]", `unknown basic type "blob"`, "Details:", "line:4"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, code := run(t, append([]string{"compile"}, tc.args...)...)
			assert.Equal(t, ExitCommandError, code)
			for _, msg := range tc.msgs {
				assert.Contains(t, stdout, msg)
			}
		})
	}
}

func TestCompile_WriteFailure(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)
	outputFile := filepath.Join(t.TempDir(), "missing", "plan.json")

	stdout, _, code := run(t, "compile", "--schema", testutil.SchemaDir(), query, "-o", outputFile)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "Error [E007]")
}

func TestDescribeReturn(t *testing.T) {
	schemaDir := testutil.SchemaDir()
	query := writeFile(t, "q.yaml", "from: [{root: {entity: Company, alias: c}}]")

	stdout, _, code := run(t, "compile", "--schema", schemaDir, query)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "1. entity Company (3 columns)")
}

package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/testutil"
)

func TestSchema_Text(t *testing.T) {
	stdout, _, code := run(t, "schema", "--schema", testutil.SchemaDir())
	require.Equal(t, ExitSuccess, code, stdout)

	assert.Contains(t, stdout,
		"create table if not exists company (id bigint not null, name varchar, reg_no varchar, primary key (id));\n")
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 9)
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, ";"), line)
	}
}

func TestSchema_JSON(t *testing.T) {
	stdout, _, code := run(t, "schema", "--format", "json", "--schema", testutil.SchemaDir())
	require.Equal(t, ExitSuccess, code, stdout)

	var resp struct {
		Status string       `json:"status"`
		Data   SchemaResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Data.Tables, 9)
	assert.Len(t, resp.Data.DDL, 9)
	assert.Equal(t, "company", resp.Data.Tables[0].Name)
	assert.Equal(t, []string{"id"}, resp.Data.Tables[0].PrimaryKey)
}

func TestSchema_RejectsArguments(t *testing.T) {
	_, stderr, code := run(t, "schema", "--schema", testutil.SchemaDir(), "extra")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `unknown command "extra"`)
}

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/oqlc/internal/testutil"
)

const companyByName = `
select: {items: [{expr: {path: c.name}}]}
from: [{root: {entity: Company, alias: c}}]
where: {eq: [{path: c.name}, {param: name}]}
`

const companyMod = `
select: {items: [{expr: {mod: [{path: c.id}, {int: "7"}]}}]}
from: [{root: {entity: Company, alias: c}}]
`

// run executes the CLI and returns stdout, stderr and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "oqlc", cmd.Use)
	assert.Contains(t, cmd.Long, "object queries")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "check", "schema", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	testCases := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"verbose", "v", "false"},
		{"format", "", "text"},
		{"config", "", ""},
		{"schema", "s", ""},
		{"dialect", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tc.name)
			require.NotNil(t, flag)
			assert.Equal(t, tc.shorthand, flag.Shorthand)
			assert.Equal(t, tc.def, flag.DefValue)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("yaml"))

	query := writeFile(t, "q.yaml", companyByName)
	_, stderr, code := run(t, "compile", "--format", "yaml", "--schema", testutil.SchemaDir(), query)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid format "yaml"`)
}

func TestExecute_UsageErrors(t *testing.T) {
	_, stderr, code := run(t, "compile")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error: accepts 1 arg(s)")

	_, stderr, code = run(t, "frobnicate")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)
}

func TestMissingSchema(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)
	stdout, _, code := run(t, "compile", query)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "Error [E006]")
	assert.Contains(t, stdout, "no schema directory")
}

func TestConfigFile(t *testing.T) {
	cfg := writeFile(t, "oqlc.toml", "schema = '"+testutil.SchemaDir()+"'\ndialect = 'ansi'\n")
	query := writeFile(t, "q.yaml", companyMod)

	stdout, _, code := run(t, "--config", cfg, "compile", query)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "select mod(c1_0.id,7) from company c1_0")
	assert.Contains(t, stdout, "(ansi)")

	// flags win over the file
	stdout, _, code = run(t, "--config", cfg, "--dialect", "sqlite", "compile", query)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "select (c1_0.id%7) from company c1_0")
}

func TestConfigErrors(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)

	testCases := []struct {
		name string
		args []string
		msg  string
	}{
		{
			name: "unknown key",
			args: []string{"--config", writeFile(t, "oqlc.toml", "schema = 'x'\nshema = 'y'\n")},
			msg:  "unknown keys shema",
		},
		{
			name: "missing file",
			args: []string{"--config", filepath.Join(t.TempDir(), "none.toml")},
			msg:  "failed to parse config",
		},
		{
			name: "bad log level",
			args: []string{"--config", writeFile(t, "oqlc.toml", "log_level = 'loud'\n")},
			msg:  `unknown log level "loud"`,
		},
		{
			name: "bad dialect",
			args: []string{"--dialect", "oracle"},
			msg:  `unknown dialect "oracle"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append(tc.args, "compile", "--schema", testutil.SchemaDir(), query)
			stdout, _, code := run(t, args...)
			assert.Equal(t, ExitCommandError, code)
			assert.Contains(t, stdout, "Error [E006]")
			assert.Contains(t, stdout, tc.msg)
		})
	}
}

func TestVerboseLogsToStderr(t *testing.T) {
	query := writeFile(t, "q.yaml", companyByName)

	stdout, stderr, code := run(t, "--verbose", "--format", "json", "--schema", testutil.SchemaDir(), "compile", query)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "Loading schema from")
	assert.Contains(t, stderr, "compilation started")
	assert.NotContains(t, stdout, "compilation started")

	_, stderr, code = run(t, "--schema", testutil.SchemaDir(), "compile", query)
	require.Equal(t, ExitSuccess, code)
	assert.Empty(t, stderr)
}

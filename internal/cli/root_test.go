package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "logbase", cmd.Use)
	assert.Contains(t, cmd.Long, "write-once")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "create", "get", "update", "list", "recent", "actions", "scenario"}

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

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestListCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)

	pageSize := listCmd.Flags().Lookup("page-size")
	require.NotNil(t, pageSize)
	assert.Equal(t, "10", pageSize.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addr := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "", addr.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "actions", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

// execute runs the root command with args and returns everything written to
// stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// isolateEnv blanks every LOGBASE_* variable the config layer reads so the
// host environment cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOGBASE_CONFIG",
		"LOGBASE_ENV",
		"LOGBASE_HTTP_HOST",
		"LOGBASE_HTTP_PORT",
		"LOGBASE_STORE_ENGINE",
		"LOGBASE_STORE_QUERY_TIMEOUT",
		"LOGBASE_SQLITE_PATH",
		"LOGBASE_CQL_HOSTS",
		"LOGBASE_CQL_KEYSPACE",
		"LOGBASE_CQL_USERNAME",
		"LOGBASE_CQL_PASSWORD",
		"LOGBASE_REDIS_ADDR",
		"LOGBASE_REDIS_PASSWORD",
		"LOGBASE_LOG_LEVEL",
		"LOGBASE_LOG_FILE",
		"LOGBASE_TRACING_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

// writeSQLiteConfig writes a config file selecting a fresh SQLite database
// and returns its path.
func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	isolateEnv(t)

	dir := t.TempDir()
	data := "env: test\n" +
		"store:\n  engine: sqlite\n" +
		"sqlite:\n  path: " + filepath.Join(dir, "logbase.db") + "\n" +
		"log:\n  level: error\n"

	path := filepath.Join(dir, "logbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

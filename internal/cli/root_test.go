package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "weatherdeck", cmd.Use)
	assert.Contains(t, cmd.Long, "sliding")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"seed", "stream", "serve", "window", "latest"}

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

	engineFlag := cmd.PersistentFlags().Lookup("engine")
	require.NotNil(t, engineFlag)
	assert.Equal(t, "", engineFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
}

func TestSeedCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	seedCmd, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	countFlag := seedCmd.Flags().Lookup("count")
	require.NotNil(t, countFlag)
	assert.Equal(t, "0", countFlag.DefValue)

	spanFlag := seedCmd.Flags().Lookup("span")
	require.NotNil(t, spanFlag)
}

func TestStreamCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	streamCmd, _, err := cmd.Find([]string{"stream"})
	require.NoError(t, err)

	intervalFlag := streamCmd.Flags().Lookup("interval")
	require.NotNil(t, intervalFlag)

	readingsFlag := streamCmd.Flags().Lookup("readings")
	require.NotNil(t, readingsFlag)
	assert.Equal(t, "0", readingsFlag.DefValue)

	seedFlag := streamCmd.Flags().Lookup("seed")
	require.NotNil(t, seedFlag)
	assert.Equal(t, "false", seedFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"addr", "stream", "auto-refresh", "lookback", "limit", "refresh-interval"} {
		flag := serveCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "serve should have --%s", name)
	}
}

func TestWindowCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	windowCmd, _, err := cmd.Find([]string{"window"})
	require.NoError(t, err)

	lookbackFlag := windowCmd.Flags().Lookup("lookback")
	require.NotNil(t, lookbackFlag)
	assert.Equal(t, "0", lookbackFlag.DefValue)

	limitFlag := windowCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	assert.Contains(t, cmd.Short, "weatherdeck")
	assert.Contains(t, cmd.Long, "dashboard")
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestEngineValidation(t *testing.T) {
	assert.True(t, isValidEngine("sqlite"))
	assert.True(t, isValidEngine("badger"))

	assert.False(t, isValidEngine("postgres"))
	assert.False(t, isValidEngine("SQLITE"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "latest"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestEngineValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--engine", "postgres", "latest"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid engine")
}

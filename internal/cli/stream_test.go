package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamBoundedCount(t *testing.T) {
	dbPath := tmpDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewStreamCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--readings", "3", "--interval", "1ms"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Press Ctrl-C to stop.")
	assert.Equal(t, int64(3), countRows(t, dbPath))
}

func TestStreamSeedsFirst(t *testing.T) {
	dbPath := tmpDB(t)
	cfgPath := filepath.Join(t.TempDir(), "weatherdeck.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte("producer: seed_count: 5\n"), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath, ConfigPath: cfgPath}
	cmd := NewStreamCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--seed", "--readings", "1", "--interval", "1ms"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, int64(6), countRows(t, dbPath), "5 seeded plus 1 streamed")
}

func TestStreamStopsOnContextCancel(t *testing.T) {
	dbPath := tmpDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewStreamCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--interval", "10ms"})

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		// An interrupted stream is a normal stop, not an error.
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not respect context cancellation")
	}

	assert.GreaterOrEqual(t, countRows(t, dbPath), int64(1),
		"at least the first tick should have landed")
}

func TestStreamRejectsNegativeReadings(t *testing.T) {
	dbPath := tmpDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Database: dbPath}
	cmd := NewStreamCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--readings", "-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stream parameters")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStreamHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewStreamCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ingestion loop")
	assert.Contains(t, output, "--interval")
	assert.Contains(t, output, "--seed")
}

package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
)

// createTestStore creates a file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readings.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testReading builds a reading at the given timestamp with a
// recognizable temperature.
func testReading(ts time.Time, temp float64) reading.Reading {
	return reading.Reading{
		Timestamp:   ts,
		Temperature: temp,
		Humidity:    50,
		Pressure:    1013.25,
	}
}

// testBase is a fixed wall time for tests that supply explicit timestamps.
var testBase = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

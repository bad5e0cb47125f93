package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

// Window returns up to limit readings with timestamp >= since, ordered
// oldest to newest. When the window holds more than limit rows, the most
// recent limit rows win: the query selects newest-first with LIMIT, then
// the slice is reversed back to ascending order.
//
// Returns an empty slice (not nil) when nothing matches. A limit <= 0
// also yields an empty slice; negative LIMIT means "unbounded" to SQLite,
// which is never what a dashboard wants.
func (s *Store) Window(ctx context.Context, since time.Time, limit int) ([]reading.Reading, error) {
	if limit <= 0 {
		return []reading.Reading{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, temperature, humidity, pressure
		FROM readings
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, since.UnixNano(), limit)
	if err != nil {
		return nil, &store.ReadError{Op: "window", Err: err}
	}
	defer rows.Close()

	var readings []reading.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, &store.ReadError{Op: "window", Err: err}
		}
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, &store.ReadError{Op: "window", Err: err}
	}

	// Return empty slice instead of nil
	if readings == nil {
		return []reading.Reading{}, nil
	}

	// Newest-first from the query; callers get oldest-first.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}

	return readings, nil
}

// Latest returns the most recent reading, breaking timestamp ties by id
// so interleaved seed and stream rows resolve deterministically. Returns
// store.ErrNoReadings when the table is empty.
func (s *Store) Latest(ctx context.Context) (reading.Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, temperature, humidity, pressure
		FROM readings
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`)

	var r reading.Reading
	var ts int64
	err := row.Scan(&r.ID, &ts, &r.Temperature, &r.Humidity, &r.Pressure)
	if err == sql.ErrNoRows {
		return reading.Reading{}, store.ErrNoReadings
	}
	if err != nil {
		return reading.Reading{}, &store.ReadError{Op: "latest", Err: err}
	}
	r.Timestamp = time.Unix(0, ts).UTC()

	return r, nil
}

// Count returns the total number of stored readings.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	if err != nil {
		return 0, &store.ReadError{Op: "count", Err: err}
	}
	return count, nil
}

// scanReading scans a row into a Reading.
func scanReading(rows *sql.Rows) (reading.Reading, error) {
	var r reading.Reading
	var ts int64

	if err := rows.Scan(&r.ID, &ts, &r.Temperature, &r.Humidity, &r.Pressure); err != nil {
		return reading.Reading{}, err
	}

	// Nanoseconds in the column carry no zone; rehydrate as UTC.
	r.Timestamp = time.Unix(0, ts).UTC()
	return r, nil
}

package sqlite

import (
	"context"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

// Insert appends one reading and returns its AUTOINCREMENT id. A zero
// Timestamp is replaced with the current wall time so streaming callers
// can leave stamping to the store. The insert commits before returning;
// with WAL journaling a reader in another process sees the row on its
// next query.
func (s *Store) Insert(ctx context.Context, r reading.Reading) (int64, error) {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (timestamp, temperature, humidity, pressure)
		VALUES (?, ?, ?, ?)
	`,
		ts.UnixNano(),
		r.Temperature,
		r.Humidity,
		r.Pressure,
	)
	if err != nil {
		return 0, &store.WriteError{Op: "insert", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &store.WriteError{Op: "insert", Err: err}
	}

	return id, nil
}

// InsertBatch appends readings in one transaction: all rows land or none
// do. Assigned ids are returned in input order. Used by the seeder,
// where per-row commits would be needlessly slow.
func (s *Store) InsertBatch(ctx context.Context, rs []reading.Reading) ([]int64, error) {
	if len(rs) == 0 {
		return []int64{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &store.WriteError{Op: "insert batch: begin tx", Err: err}
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO readings (timestamp, temperature, humidity, pressure)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, &store.WriteError{Op: "insert batch: prepare", Err: err}
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(rs))
	for _, r := range rs {
		ts := r.Timestamp
		if ts.IsZero() {
			ts = s.now()
		}

		result, err := stmt.ExecContext(ctx, ts.UnixNano(), r.Temperature, r.Humidity, r.Pressure)
		if err != nil {
			return nil, &store.WriteError{Op: "insert batch", Err: err}
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, &store.WriteError{Op: "insert batch: last insert id", Err: err}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, &store.WriteError{Op: "insert batch: commit", Err: err}
	}

	return ids, nil
}

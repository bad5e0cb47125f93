package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

func TestWindow_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	rs, err := s.Window(context.Background(), testBase.Add(-time.Hour), 100)
	if err != nil {
		t.Fatalf("Window() failed: %v", err)
	}
	if rs == nil {
		t.Error("Window() returned nil, want empty slice")
	}
	if len(rs) != 0 {
		t.Errorf("Window() returned %d readings, want 0", len(rs))
	}
}

func TestWindow_CutoffFilters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, age := range []time.Duration{3 * time.Hour, 90 * time.Minute, 30 * time.Minute} {
		if _, err := s.Insert(ctx, testReading(testBase.Add(-age), 20)); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	since := testBase.Add(-time.Hour)
	rs, err := s.Window(ctx, since, 100)
	if err != nil {
		t.Fatalf("Window() failed: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("Window() returned %d readings, want 1", len(rs))
	}
	if rs[0].Timestamp.Before(since) {
		t.Errorf("Window() returned reading at %v, older than cutoff %v", rs[0].Timestamp, since)
	}
}

func TestWindow_LimitKeepsMostRecent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := testReading(testBase.Add(time.Duration(i)*time.Minute), float64(10+i))
		if _, err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	rs, err := s.Window(ctx, testBase.Add(-time.Hour), 2)
	if err != nil {
		t.Fatalf("Window() failed: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("Window() returned %d readings, want 2", len(rs))
	}
	// The most recent two, still oldest first.
	if rs[0].Temperature != 13 || rs[1].Temperature != 14 {
		t.Errorf("Window() temperatures = %v, %v; want 13, 14", rs[0].Temperature, rs[1].Temperature)
	}
}

func TestWindow_OrdersOldestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Insert out of chronological order: id order disagrees with
	// timestamp order, as happens when seeding after streaming.
	offsets := []time.Duration{-10 * time.Minute, -40 * time.Minute, -25 * time.Minute}
	for i, off := range offsets {
		if _, err := s.Insert(ctx, testReading(testBase.Add(off), float64(i))); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	rs, err := s.Window(ctx, testBase.Add(-time.Hour), 100)
	if err != nil {
		t.Fatalf("Window() failed: %v", err)
	}
	if len(rs) != 3 {
		t.Fatalf("Window() returned %d readings, want 3", len(rs))
	}
	for i := 1; i < len(rs); i++ {
		if rs[i].Timestamp.Before(rs[i-1].Timestamp) {
			t.Errorf("Window() not ascending: [%d]=%v before [%d]=%v",
				i, rs[i].Timestamp, i-1, rs[i-1].Timestamp)
		}
	}
}

func TestWindow_NonPositiveLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, testReading(testBase, 20)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	for _, limit := range []int{0, -1} {
		rs, err := s.Window(ctx, testBase.Add(-time.Hour), limit)
		if err != nil {
			t.Fatalf("Window(limit=%d) failed: %v", limit, err)
		}
		if len(rs) != 0 {
			t.Errorf("Window(limit=%d) returned %d readings, want 0", limit, len(rs))
		}
	}
}

func TestLatest_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Latest(context.Background())
	if !errors.Is(err, store.ErrNoReadings) {
		t.Errorf("Latest() error = %v, want ErrNoReadings", err)
	}
}

func TestLatest_TiebreaksOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, testReading(testBase, 1)); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	id2, err := s.Insert(ctx, testReading(testBase, 2))
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if latest.ID != id2 {
		t.Errorf("Latest().ID = %d, want %d (higher id wins the timestamp tie)", latest.ID, id2)
	}
}

func TestCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d on empty store, want 0", count)
	}

	rs := make([]reading.Reading, 7)
	for i := range rs {
		rs[i] = testReading(testBase.Add(time.Duration(i)*time.Second), 20)
	}
	if _, err := s.InsertBatch(ctx, rs); err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}

	count, err = s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 7 {
		t.Errorf("Count() = %d, want 7", count)
	}
}

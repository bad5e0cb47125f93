package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdeck/weatherdeck/internal/scheduler"
)

func validOptions() scheduler.Options {
	return scheduler.Options{
		AutoRefresh:   true,
		LookbackHours: 6,
		Limit:         500,
		Interval:      10 * time.Second,
	}
}

func TestValidateOptions(t *testing.T) {
	require.NoError(t, ValidateOptions(validOptions()))

	tests := []struct {
		name   string
		mutate func(*scheduler.Options)
	}{
		{"lookback not in set", func(o *scheduler.Options) { o.LookbackHours = 7 }},
		{"limit below floor", func(o *scheduler.Options) { o.Limit = 50 }},
		{"limit above ceiling", func(o *scheduler.Options) { o.Limit = 9000 }},
		{"interval too long", func(o *scheduler.Options) { o.Interval = 31 * time.Second }},
		{"interval zero", func(o *scheduler.Options) { o.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOptions()
			tt.mutate(&o)
			err := ValidateOptions(o)
			require.Error(t, err)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSettings_UpdateApplies(t *testing.T) {
	s := NewSettings(Default())

	next := validOptions()
	require.NoError(t, s.Update(next))
	assert.Equal(t, next, s.Options())
}

func TestSettings_InvalidUpdateChangesNothing(t *testing.T) {
	s := NewSettings(Default())
	before := s.Options()

	bad := validOptions()
	bad.Limit = 7
	require.Error(t, s.Update(bad))
	assert.Equal(t, before, s.Options())
}

func TestSettings_IsOptionSource(t *testing.T) {
	s := NewSettings(Default())

	var src scheduler.OptionSource = s.Options
	assert.Equal(t, 24, src().LookbackHours)
}

func TestSettings_ConcurrentAccess(t *testing.T) {
	s := NewSettings(Default())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Options()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = s.Update(validOptions())
			}
		}()
	}
	wg.Wait()
}

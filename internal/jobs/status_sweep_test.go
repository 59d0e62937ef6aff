package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siaa/storage-rental/internal/config"
	"github.com/siaa/storage-rental/internal/service"
)

type fakeSweeper struct {
	res  service.SweepResult
	err  error
	seen time.Time
}

func (f *fakeSweeper) SweepDue(_ context.Context, now time.Time) (service.SweepResult, error) {
	f.seen = now
	return f.res, f.err
}

func TestRunSweep(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	f := &fakeSweeper{res: service.SweepResult{Activated: 2, Completed: 1}}
	res := RunSweep(context.Background(), f, now)
	assert.Equal(t, 2, res.Activated)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, now, f.seen)

	f.err = errors.New("db down")
	f.res = service.SweepResult{Activated: 1}
	assert.Equal(t, 1, RunSweep(context.Background(), f, now).Activated)
}

func TestNewStatusSweepSchedule(t *testing.T) {
	c, err := NewStatusSweep(config.SweepConfig{Schedule: "@every 15m"}, &fakeSweeper{})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = NewStatusSweep(config.SweepConfig{Schedule: "not a schedule"}, &fakeSweeper{})
	assert.Error(t, err)
}

package subscription

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireDue(context.Context) (int64, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSweeper_RunOnce(t *testing.T) {
	exp := &countingExpirer{}
	s := NewSweeper(exp, zerolog.Nop())

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int32(1), exp.calls.Load())
}

func TestSweeper_RunOnce_Error(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db down")}
	_, err := NewSweeper(exp, zerolog.Nop()).RunOnce(context.Background())
	assert.Error(t, err)
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	s := NewSweeper(&countingExpirer{}, zerolog.Nop())
	assert.Error(t, s.Start("every now and then"))
}

func TestSweeper_Schedules(t *testing.T) {
	exp := &countingExpirer{}
	s := NewSweeper(exp, zerolog.Nop())
	require.NoError(t, s.Start("@every 1s"))
	defer s.Stop()

	assert.Eventually(t, func() bool { return exp.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

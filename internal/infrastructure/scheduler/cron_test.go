package scheduler

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shareminder/internal/pkg/logger"
)

func TestFormatCronSpec(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC)
	assert.Equal(t, "15 30 9 1 3 *", formatCronSpec(at))
}

func TestScheduleReturnsParseableHandle(t *testing.T) {
	s := NewScheduler(logger.New())

	handle, err := s.Schedule(context.Background(), "r1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	entryID, err := strconv.Atoi(handle)
	require.NoError(t, err)
	assert.Greater(t, entryID, 0)

	require.NoError(t, s.Cancel(context.Background(), handle))
}

func TestCancelStaleHandleIsNoOp(t *testing.T) {
	s := NewScheduler(logger.New())

	assert.NoError(t, s.Cancel(context.Background(), "99999"))
	assert.NoError(t, s.Cancel(context.Background(), "not-a-handle"))
}

func TestScheduleClampsPastFireTimes(t *testing.T) {
	s := NewScheduler(logger.New())

	// A past fire time must still produce a live entry instead of one that
	// would only match next year.
	handle, err := s.Schedule(context.Background(), "r2", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.Cancel(context.Background(), handle))
}

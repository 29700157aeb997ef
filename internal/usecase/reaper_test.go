package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibedesk/internal/infra/logger"
)

type stubFinalizer struct {
	mu        sync.Mutex
	calls     int
	olderThan time.Duration
	marker    string
	n         int
	err       error
}

func (s *stubFinalizer) FinalizeStaleMessages(_ context.Context, olderThan time.Duration, marker string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.olderThan = olderThan
	s.marker = marker
	return s.n, s.err
}

func TestReaperSweep(t *testing.T) {
	fin := &stubFinalizer{n: 3}
	r := NewReaper(fin, 15*time.Minute, logger.Discard())

	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 15*time.Minute, fin.olderThan)
	assert.Equal(t, InterruptedMarker, fin.marker)
}

func TestReaperSweepError(t *testing.T) {
	fin := &stubFinalizer{err: errors.New("db locked")}
	r := NewReaper(fin, 0, logger.Discard())

	_, err := r.Sweep(context.Background())
	assert.Error(t, err)
}

func TestReaperDefaultMaxAge(t *testing.T) {
	fin := &stubFinalizer{}
	r := NewReaper(fin, 0, logger.Discard())
	_, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, fin.olderThan)
}

func TestReaperStartInvalidSchedule(t *testing.T) {
	r := NewReaper(&stubFinalizer{}, time.Minute, logger.Discard())
	_, err := r.Start("not a cron spec")
	assert.Error(t, err)
}

func TestReaperStartAndStop(t *testing.T) {
	fin := &stubFinalizer{}
	r := NewReaper(fin, time.Minute, logger.Discard())

	stop, err := r.Start("@every 1h")
	require.NoError(t, err)
	stop()
}

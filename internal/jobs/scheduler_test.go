package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	calls   atomic.Int32
	removed int64
	err     error
}

func (c *countingSweeper) SweepOrphans(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return c.removed, c.err
}

func TestRunOrphanSweep(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(slog.New(slog.NewTextHandler(&buf, nil)), time.Second)

	sw := &countingSweeper{removed: 3}
	s.RunOrphanSweep(context.Background(), sw)
	assert.EqualValues(t, 1, sw.calls.Load())
	assert.Contains(t, buf.String(), "removed=3")

	buf.Reset()
	s.RunOrphanSweep(context.Background(), &countingSweeper{err: errors.New("mongo down")})
	assert.Contains(t, buf.String(), "orphan part sweep failed")
}

func TestAddOrphanSweep(t *testing.T) {
	s := NewScheduler(nil, time.Second)

	assert.NoError(t, s.AddOrphanSweep("", &countingSweeper{}))
	assert.Error(t, s.AddOrphanSweep("every tuesday-ish", &countingSweeper{}))
	assert.Empty(t, s.cron.Entries())

	require.NoError(t, s.AddOrphanSweep("@hourly", &countingSweeper{}))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_RunsAndStops(t *testing.T) {
	s := NewScheduler(nil, time.Second)
	sw := &countingSweeper{}
	require.NoError(t, s.AddOrphanSweep("@every 1s", sw))

	s.Start()
	assert.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

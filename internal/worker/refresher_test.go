package worker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookkeeper/internal/log"
	"bookkeeper/internal/services"
)

type fakeSource struct {
	mu     sync.Mutex
	calls  int
	totals services.Totals
	err    error
}

func (f *fakeSource) Totals(context.Context) (services.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.totals, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Output: buf})
}

func TestRefreshWarnsOnExceededPeriods(t *testing.T) {
	start := time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)
	source := &fakeSource{totals: services.Totals{
		Day:   services.PeriodTotal{Length: 1, Start: start, Paid: 10, Limit: 100},
		Week:  services.PeriodTotal{Length: 7, Start: start, Paid: 300, Limit: 200},
		Month: services.PeriodTotal{Length: 30, Start: start, Paid: 300, Limit: 500},
	}}

	var buf bytes.Buffer
	var got services.Totals
	r := NewRefresher(source, time.Minute, func(t services.Totals) { got = t }, testLogger(&buf))

	totals, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, source.totals, totals)
	assert.Equal(t, source.totals, got)

	out := buf.String()
	assert.Contains(t, out, "Budget limit exceeded")
	assert.Contains(t, out, "period=week")
	assert.Contains(t, out, "usage=1.5")
	assert.NotContains(t, out, "period=day")
	assert.NotContains(t, out, "period=month")
}

func TestRefreshError(t *testing.T) {
	source := &fakeSource{err: errors.New("db gone")}
	called := false
	r := NewRefresher(source, time.Minute, func(services.Totals) { called = true }, testLogger(&bytes.Buffer{}))

	_, err := r.Refresh(context.Background())
	assert.ErrorContains(t, err, "db gone")
	assert.False(t, called)
}

func TestRunPollsUntilCancelled(t *testing.T) {
	source := &fakeSource{}
	r := NewRefresher(source, 10*time.Millisecond, nil, testLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return source.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSurvivesFailedRefresh(t *testing.T) {
	source := &fakeSource{err: errors.New("locked")}
	var buf safeBuffer
	r := NewRefresher(source, 10*time.Millisecond, nil, log.New(log.Config{Output: &buf}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	assert.Eventually(t, func() bool { return source.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.Eventually(t, func() bool { return bytes.Contains(buf.Bytes(), []byte("Periodic refresh failed")) }, time.Second, 5*time.Millisecond)
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	source := &fakeSource{}
	r := NewRefresher(source, 0, nil, testLogger(&bytes.Buffer{}))

	err := r.Run(context.Background())
	assert.ErrorContains(t, err, "must be positive")
	assert.Zero(t, source.Calls())
}

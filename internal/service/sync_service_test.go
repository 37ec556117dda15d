package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EliasBlind/UniBot/internal/models"
	"github.com/EliasBlind/UniBot/pkg/config"
	appErrors "github.com/EliasBlind/UniBot/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

type fakeFetcher struct {
	calls   atomic.Int64
	lessons []models.Lesson
	err     error
}

func (f *fakeFetcher) Fetch(context.Context, time.Time) ([]models.Lesson, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.lessons, nil
}

type fakeStore struct {
	mu       sync.Mutex
	replaced [][]models.Lesson
	rows     []models.ScheduleRow
	writeErr error
}

func (s *fakeStore) ReplaceWeek(_ context.Context, lessons []models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.replaced = append(s.replaced, lessons)
	return nil
}

func (s *fakeStore) Week(context.Context, time.Time) ([]models.ScheduleRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, nil
}

func (s *fakeStore) replaceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replaced)
}

func newSync(fetcher *fakeFetcher, store *fakeStore, clock *fakeClock, interval, jitterMax time.Duration) *SyncService {
	s := NewSyncService(fetcher, store, config.ScheduleConfig{
		UpdateInterval: interval,
		JitterMax:      jitterMax,
	}, nil, nil)
	s.now = clock.Now
	s.nextRefreshAt = clock.Now().Add(interval)
	return s
}

func TestCurrentWeekFreshSkipsFetch(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{}
	store := &fakeStore{rows: []models.ScheduleRow{{ID: 1, LessonName: "Mathematics"}}}
	s := newSync(fetcher, store, clock, time.Hour, 0)

	rows, err := s.CurrentWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), fetcher.calls.Load())
	assert.Len(t, rows, 1)
}

func TestCurrentWeekRefreshesWhenStale(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{lessons: []models.Lesson{{Subject: "Mathematics"}}}
	store := &fakeStore{rows: []models.ScheduleRow{{ID: 1}}}
	jitterMax := 30 * time.Minute
	s := newSync(fetcher, store, clock, time.Hour, jitterMax)

	clock.Advance(time.Hour + time.Minute)

	rows, err := s.CurrentWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetcher.calls.Load())
	assert.Equal(t, 1, store.replaceCount())
	assert.Len(t, rows, 1)

	now := clock.Now()
	assert.True(t, s.nextRefreshAt.After(now))
	assert.False(t, s.nextRefreshAt.After(now.Add(time.Hour+jitterMax)))

	// Next read inside the new deadline serves without fetching again.
	_, err = s.CurrentWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestCurrentWeekFetchFailurePropagatesAndKeepsDeadline(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{err: appErrors.ErrSourceUnavailable}
	store := &fakeStore{}
	s := newSync(fetcher, store, clock, time.Hour, 0)

	clock.Advance(2 * time.Hour)

	deadline := s.nextRefreshAt
	_, err := s.CurrentWeek(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrSourceUnavailable)
	assert.Equal(t, deadline, s.nextRefreshAt)
	assert.Equal(t, 0, store.replaceCount())

	// The failure did not consume the staleness; the next read retries.
	_, err = s.CurrentWeek(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(2), fetcher.calls.Load())
}

func TestCurrentWeekStoreFailureServesPriorSnapshot(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{lessons: []models.Lesson{{Subject: "Mathematics"}}}
	store := &fakeStore{rows: []models.ScheduleRow{{ID: 7}}, writeErr: assert.AnError}
	s := newSync(fetcher, store, clock, time.Hour, 0)

	clock.Advance(2 * time.Hour)

	deadline := s.nextRefreshAt
	rows, err := s.CurrentWeek(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, deadline, s.nextRefreshAt)
}

func TestConcurrentStaleCallersFetchOnce(t *testing.T) {
	clock := &fakeClock{at: time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{lessons: []models.Lesson{{Subject: "Mathematics"}}}
	store := &fakeStore{}
	s := newSync(fetcher, store, clock, time.Hour, 0)

	clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CurrentWeek(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.calls.Load())
	assert.Equal(t, 1, store.replaceCount())
}

func TestNewSyncServiceStartsFresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &fakeStore{}
	s := NewSyncService(fetcher, store, config.ScheduleConfig{UpdateInterval: time.Hour}, nil, nil)

	_, err := s.CurrentWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), fetcher.calls.Load())
}

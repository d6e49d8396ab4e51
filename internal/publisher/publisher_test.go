package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/repository"
	"github.com/Baaaki/chapterhub/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	events  *repository.EventRepository
	chapter *models.Chapter
	author  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)
	t.Cleanup(func() { testDB.Teardown(t) })

	author := testutil.DefaultAdminUser(t, testDB.DB)
	return &fixture{
		db:      testDB.DB,
		events:  repository.NewEventRepository(testDB.DB),
		chapter: testutil.CreateChapter(t, testDB.DB, "Eskisehir", author.ID),
		author:  author,
	}
}

func (f *fixture) event(t *testing.T, status models.ContentStatus, scheduledAt, publishedAt *time.Time) uuid.UUID {
	t.Helper()
	event := &models.Event{
		ChapterID:   f.chapter.ID,
		CreatedBy:   f.author.ID,
		Title:       "Book swap",
		StartsAt:    fixedNow.Add(72 * time.Hour),
		Status:      status,
		ScheduledAt: scheduledAt,
		PublishedAt: publishedAt,
	}
	require.NoError(t, f.events.Create(context.Background(), event))
	return event.ID
}

func (f *fixture) load(t *testing.T, id uuid.UUID) *models.Event {
	t.Helper()
	event, err := f.events.Get(context.Background(), id)
	require.NoError(t, err)
	return event
}

func (f *fixture) publisher(t *testing.T, redis *testutil.TestRedis) *Publisher {
	p := New(f.events, nil, time.Minute)
	if redis != nil {
		p.redis = redis.Client
	}
	p.now = func() time.Time { return fixedNow }
	return p
}

func at(d time.Duration) *time.Time {
	ts := fixedNow.Add(d)
	return &ts
}

func TestRunOncePublishesOnlyDueEvents(t *testing.T) {
	f := newFixture(t)
	p := f.publisher(t, nil)

	due := f.event(t, models.StatusScheduled, at(-time.Minute), nil)
	exactlyNow := f.event(t, models.StatusScheduled, at(0), nil)
	future := f.event(t, models.StatusScheduled, at(time.Hour), nil)
	draft := f.event(t, models.StatusDraft, at(-time.Hour), nil)

	n, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, id := range []uuid.UUID{due, exactlyNow} {
		event := f.load(t, id)
		assert.Equal(t, models.StatusPublished, event.Status)
		require.NotNil(t, event.PublishedAt)
		assert.True(t, fixedNow.Equal(*event.PublishedAt))
	}
	assert.Equal(t, models.StatusScheduled, f.load(t, future).Status)
	assert.Equal(t, models.StatusDraft, f.load(t, draft).Status)
}

func TestRunOnceKeepsExistingPublishedAt(t *testing.T) {
	f := newFixture(t)
	p := f.publisher(t, nil)

	earlier := fixedNow.Add(-48 * time.Hour)
	id := f.event(t, models.StatusScheduled, at(-time.Minute), &earlier)

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	event := f.load(t, id)
	assert.Equal(t, models.StatusPublished, event.Status)
	require.NotNil(t, event.PublishedAt)
	assert.True(t, earlier.Equal(*event.PublishedAt))
}

func TestRunOnceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.publisher(t, nil)
	f.event(t, models.StatusScheduled, at(-time.Minute), nil)

	first, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Zero(t, second)
}

func TestLeaseSkipsRedundantReplicas(t *testing.T) {
	f := newFixture(t)
	redis := testutil.SetupTestRedis(t)
	defer redis.Teardown(t)

	first := f.publisher(t, redis)
	second := f.publisher(t, redis)
	f.event(t, models.StatusScheduled, at(-time.Minute), nil)

	n, err := first.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	f.event(t, models.StatusScheduled, at(-time.Second), nil)
	n, err = second.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "lease is held by the first replica")

	redis.Server.FastForward(time.Minute)
	n, err = second.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLeaseFailsOpen(t *testing.T) {
	f := newFixture(t)
	redis := testutil.SetupTestRedis(t)
	p := f.publisher(t, redis)
	redis.Server.Close()
	defer redis.Client.Close()

	f.event(t, models.StatusScheduled, at(-time.Minute), nil)

	n, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunPublishesOnStartAndStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	p := f.publisher(t, nil)
	id := f.event(t, models.StatusScheduled, at(-time.Minute), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		event, err := f.events.Get(context.Background(), id)
		return err == nil && event.Status == models.StatusPublished
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publisher did not stop")
	}
}

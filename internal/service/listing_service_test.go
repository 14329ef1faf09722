package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studenthub/internal/fallback"
	"studenthub/internal/model"
)

type call struct {
	rows  []model.Entity
	total int
	err   error

	// block waits for the attempt context to end and returns blockErr, or the
	// context error when blockErr is nil.
	block    bool
	blockErr error
}

type scriptedSource struct {
	mu         sync.Mutex
	script     []call
	calls      int
	localities [][]string
}

func (s *scriptedSource) List(ctx context.Context, q model.ListingQuery, localities []string) ([]model.Entity, int, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.localities = append(s.localities, localities)
	c := s.script[len(s.script)-1]
	if i < len(s.script) {
		c = s.script[i]
	}
	s.mu.Unlock()

	if c.block {
		<-ctx.Done()
		if c.blockErr != nil {
			return nil, 0, c.blockErr
		}
		return nil, 0, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return c.rows, c.total, c.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type countingFallback struct {
	*fallback.Dataset
	reads int
}

func (c *countingFallback) Rows(kind model.Kind) []model.Entity {
	c.reads++
	return c.Dataset.Rows(kind)
}

func loadFallback(t *testing.T) *countingFallback {
	t.Helper()
	d, err := fallback.Load()
	require.NoError(t, err)
	return &countingFallback{Dataset: d}
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Timeout: time.Second, Backoff: func(int) time.Duration { return 0 }}
}

func hostelQuery(location string) model.ListingQuery {
	return model.ListingQuery{Kind: model.KindHostel, Page: 1, Location: location}
}

func TestFetchFallsBackAfterRetriesExhausted(t *testing.T) {
	src := &scriptedSource{script: []call{{err: model.ErrUnavailable}}}
	fb := loadFallback(t)
	svc := NewListingService(src, fb, fastPolicy(), nil)

	res, err := svc.Fetch(context.Background(), hostelQuery("Rajampeta"))
	require.NoError(t, err)

	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, model.SourceFallback, res.Source)
	assert.Equal(t, 4, res.TotalCount)
	assert.LessOrEqual(t, len(res.Rows), model.PageSize)
	require.NotEmpty(t, res.Rows)
	for _, e := range res.Rows {
		city, state := e.Locality()
		assert.True(t,
			strings.Contains(strings.ToLower(city), "rajampeta") || strings.Contains(strings.ToLower(state), "rajampeta"),
			"row %s outside selection", e.EntityID())
	}

	st := svc.Status()
	assert.True(t, st.Offline())
	assert.Equal(t, 2, st.Attempts)
	assert.NotEmpty(t, st.LastError)
}

func TestFetchRemoteSuccessSkipsRetryAndFallback(t *testing.T) {
	row := model.Hostel{ID: "h-1", Name: "Indiranagar PG", City: "Bangalore", State: "Karnataka", Rating: 4}
	src := &scriptedSource{script: []call{{rows: []model.Entity{row}, total: 1}}}
	fb := loadFallback(t)
	svc := NewListingService(src, fb, fastPolicy(), nil)

	res, err := svc.Fetch(context.Background(), hostelQuery("Bengaluru"))
	require.NoError(t, err)

	assert.Equal(t, model.SourceRemote, res.Source)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.TotalCount)
	assert.Equal(t, 1, src.Calls())
	assert.Zero(t, fb.reads)
	assert.Equal(t, []string{"bengaluru", "bangalore"}, src.localities[0])
	assert.Equal(t, model.SourceRemote, svc.Status().Source)
}

func TestFetchDoesNotRetryPermissionErrors(t *testing.T) {
	src := &scriptedSource{script: []call{{err: fmt.Errorf("select: %w", model.ErrPermission)}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	res, err := svc.Fetch(context.Background(), hostelQuery("Rajampeta"))
	require.NoError(t, err)
	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, model.SourceFallback, res.Source)
}

func TestFetchZeroRowsFallsBackWithoutRetry(t *testing.T) {
	src := &scriptedSource{script: []call{{rows: []model.Entity{}, total: 0}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	res, err := svc.Fetch(context.Background(), hostelQuery("Kadapa"))
	require.NoError(t, err)
	assert.Equal(t, 1, src.Calls())
	assert.Equal(t, model.SourceFallback, res.Source)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "fallback-hostel-7", res.Rows[0].EntityID())
	assert.Empty(t, svc.Status().LastError)
}

func TestFetchWithoutLocationMakesNoCalls(t *testing.T) {
	src := &scriptedSource{script: []call{{err: errors.New("unexpected")}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	res, err := svc.Fetch(context.Background(), hostelQuery("   "))
	require.NoError(t, err)
	assert.Zero(t, src.Calls())
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.TotalCount)
	assert.Equal(t, model.SourceNone, res.Source)
}

func TestFetchRejectsInvalidQueries(t *testing.T) {
	src := &scriptedSource{script: []call{{}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	_, err := svc.Fetch(context.Background(), model.ListingQuery{Kind: "cinema", Location: "Kadapa"})
	assert.ErrorIs(t, err, model.ErrInvalidQuery)

	_, err = svc.Fetch(context.Background(), model.ListingQuery{
		Kind: model.KindPlace, Location: "Kadapa", Filters: map[string]string{"cuisine": "Andhra"},
	})
	assert.ErrorIs(t, err, model.ErrInvalidQuery)
	assert.Zero(t, src.Calls())
}

func TestFetchRetriesAfterAttemptTimeout(t *testing.T) {
	row := model.Place{ID: "p-1", Name: "Tallapaka", City: "Rajampeta", Rating: 4.4}
	src := &scriptedSource{script: []call{{block: true}, {rows: []model.Entity{row}, total: 1}}}
	policy := fastPolicy()
	policy.Timeout = 20 * time.Millisecond
	svc := NewListingService(src, loadFallback(t), policy, nil)

	res, err := svc.Fetch(context.Background(), model.ListingQuery{Kind: model.KindPlace, Page: 1, Location: "Rajampeta"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, model.SourceRemote, res.Source)
}

func TestFetchRetriesDriverCancelAfterAttemptTimeout(t *testing.T) {
	row := model.Place{ID: "p-1", Name: "Tallapaka", City: "Rajampeta", Rating: 4.4}
	canceled := &pq.Error{Code: "57014", Message: "canceling statement due to user request"}
	src := &scriptedSource{script: []call{
		{block: true, blockErr: fmt.Errorf("ListingRepository.List: %w", canceled)},
		{rows: []model.Entity{row}, total: 1},
	}}
	policy := fastPolicy()
	policy.Timeout = 20 * time.Millisecond
	svc := NewListingService(src, loadFallback(t), policy, nil)

	res, err := svc.Fetch(context.Background(), model.ListingQuery{Kind: model.KindPlace, Page: 1, Location: "Rajampeta"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, model.SourceRemote, res.Source)
}

func TestFetchReturnsCallerCancellation(t *testing.T) {
	src := &scriptedSource{script: []call{{block: true}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := svc.Fetch(ctx, hostelQuery("Rajampeta"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.Calls())
}

func TestFetchWaitsBackoffBetweenAttempts(t *testing.T) {
	src := &scriptedSource{script: []call{{err: context.DeadlineExceeded}}}
	var waited []int
	policy := fastPolicy()
	policy.MaxAttempts = 3
	policy.Backoff = func(attempt int) time.Duration {
		waited = append(waited, attempt)
		return time.Millisecond
	}
	svc := NewListingService(src, loadFallback(t), policy, nil)

	_, err := svc.Fetch(context.Background(), hostelQuery("Tirupati"))
	require.NoError(t, err)
	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, []int{0, 1}, waited)
}

func TestLinearBackoff(t *testing.T) {
	b := LinearBackoff(time.Second)
	assert.Equal(t, time.Second, b(0))
	assert.Equal(t, 2*time.Second, b(1))
	assert.Equal(t, 2, DefaultRetryPolicy().MaxAttempts)
}

func TestFallbackIsIdempotent(t *testing.T) {
	src := &scriptedSource{script: []call{{err: model.ErrUnavailable}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	q := model.ListingQuery{Kind: model.KindRestaurant, Page: 1, Location: "Bengaluru"}
	first, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("fallback result changed between calls (-first +second):\n%s", diff)
	}
	require.Len(t, first.Rows, 2)
	assert.Equal(t, "fallback-restaurant-3", first.Rows[0].EntityID())
}

type staticFallback []model.Entity

func (s staticFallback) Rows(model.Kind) []model.Entity {
	out := make([]model.Entity, len(s))
	copy(out, s)
	return out
}

func TestFallbackPagination(t *testing.T) {
	var rows staticFallback
	for i := 0; i < 15; i++ {
		rows = append(rows, model.Hostel{ID: fmt.Sprintf("fallback-%02d", i), City: "Chennai", Rating: 4})
	}
	src := &scriptedSource{script: []call{{err: model.ErrUnavailable}}}
	svc := NewListingService(src, rows, fastPolicy(), nil)

	q := model.ListingQuery{Kind: model.KindHostel, Page: 2, Location: "Madras"}
	res, err := svc.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 15, res.TotalCount)
	require.Len(t, res.Rows, 3)
	// ties keep dataset order
	assert.Equal(t, "fallback-12", res.Rows[0].EntityID())

	q.Page = 3
	res, err = svc.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 15, res.TotalCount)
	assert.Empty(t, res.Rows)
}

func TestFilterRows(t *testing.T) {
	fb := loadFallback(t)

	rows := FilterRows(fb.Dataset.Rows(model.KindRestaurant), model.ListingQuery{
		Kind: model.KindRestaurant, Location: "Rajampeta", SearchTerm: "PIZZA",
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "fallback-restaurant-2", rows[0].EntityID())

	rows = FilterRows(fb.Dataset.Rows(model.KindHostel), model.ListingQuery{
		Kind: model.KindHostel, Location: "Rajampeta", Filters: map[string]string{"hostel_type": "Boys"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "fallback-hostel-1", rows[0].EntityID())
	assert.Equal(t, "fallback-hostel-4", rows[1].EntityID())
}

func TestOnStatus(t *testing.T) {
	src := &scriptedSource{script: []call{{err: model.ErrUnavailable}}}
	svc := NewListingService(src, loadFallback(t), fastPolicy(), nil)

	var got []ConnectionStatus
	unsubscribe := svc.OnStatus(func(st ConnectionStatus) { got = append(got, st) })

	_, err := svc.Fetch(context.Background(), hostelQuery("Rajampeta"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SourceFallback, got[0].Source)

	unsubscribe()
	_, err = svc.Fetch(context.Background(), hostelQuery("Rajampeta"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

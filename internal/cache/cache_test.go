package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tracker-central/internal/domain"
)

type fetcherFunc func(ctx context.Context, id int64) (*domain.Company, error)

func (f fetcherFunc) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	return f(ctx, id)
}

func TestCompanyCacheInProcess(t *testing.T) {
	var calls atomic.Int32
	fetch := fetcherFunc(func(_ context.Context, id int64) (*domain.Company, error) {
		calls.Add(1)
		return &domain.Company{ID: id, Name: "Fairfax"}, nil
	})
	now := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	c := NewCompanyCache(nil, fetch, time.Minute, nil, nil)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	co, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Fairfax", co.Name)

	co.Name = "mutated"
	co, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Fairfax", co.Name)
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	c.Invalidate(ctx, 7)
	_, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompanyCacheSharesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := fetcherFunc(func(_ context.Context, id int64) (*domain.Company, error) {
		calls.Add(1)
		<-release
		return &domain.Company{ID: id}, nil
	})
	c := NewCompanyCache(nil, fetch, time.Minute, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestCompanyCacheDoesNotStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	c := NewCompanyCache(nil, fetcherFunc(func(context.Context, int64) (*domain.Company, error) {
		calls.Add(1)
		return nil, boom
	}), time.Minute, nil, nil)

	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	_, err = c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDeduperInProcess(t *testing.T) {
	now := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	d := NewDeduper(nil, 30*time.Second)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := d.Claim(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = d.Claim(ctx, "fp")
	assert.False(t, ok)

	require.NoError(t, d.Release(ctx, "fp"))
	ok, _ = d.Claim(ctx, "fp")
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	ok, _ = d.Claim(ctx, "fp")
	assert.True(t, ok)
}

func TestDeduperDisabled(t *testing.T) {
	d := NewDeduper(nil, 0)
	for i := 0; i < 2; i++ {
		ok, err := d.Claim(context.Background(), "fp")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

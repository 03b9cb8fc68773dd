package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-urban/mailchimp-automation/internal/model"
)

type fakeListingSource struct {
	mu       sync.Mutex
	listings []model.Listing
	err      error
	calls    int
}

func (f *fakeListingSource) FetchAllListings(ctx context.Context) ([]model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func (f *fakeListingSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func listing(code string) model.Listing {
	return model.Listing{Code: code}
}

func TestCatalogEnsureLoadedOnce(t *testing.T) {
	t.Parallel()

	src := &fakeListingSource{listings: []model.Listing{listing("100"), listing("200")}}
	cat := NewCatalog(src)

	cat.EnsureLoaded(context.Background())
	cat.EnsureLoaded(context.Background())
	cat.EnsureLoaded(context.Background())

	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, 2, cat.Len())

	got, ok := cat.Get("200")
	require.True(t, ok)
	assert.Equal(t, "200", got.Code)

	_, ok = cat.Get("999")
	assert.False(t, ok)
}

func TestCatalogPreservesLoadOrder(t *testing.T) {
	t.Parallel()

	src := &fakeListingSource{listings: []model.Listing{listing("3"), listing("1"), listing("2")}}
	cat := NewCatalog(src)
	cat.EnsureLoaded(context.Background())

	all := cat.All()
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].Code)
	assert.Equal(t, "1", all[1].Code)
	assert.Equal(t, "2", all[2].Code)
}

func TestCatalogLoadFailureLeavesCacheEmpty(t *testing.T) {
	t.Parallel()

	src := &fakeListingSource{err: eris.New("connection refused")}
	cat := NewCatalog(src)

	cat.EnsureLoaded(context.Background())
	assert.Equal(t, 0, cat.Len())

	// The cache never retries on its own.
	cat.EnsureLoaded(context.Background())
	assert.Equal(t, 1, src.callCount())
}

func TestCatalogSnapshotIgnoresLaterSourceChanges(t *testing.T) {
	t.Parallel()

	src := &fakeListingSource{listings: []model.Listing{listing("100")}}
	cat := NewCatalog(src)
	cat.EnsureLoaded(context.Background())

	src.mu.Lock()
	src.listings = append(src.listings, listing("200"))
	src.mu.Unlock()

	cat.EnsureLoaded(context.Background())
	assert.Equal(t, 1, cat.Len())
}

func TestCatalogConcurrentEnsureLoaded(t *testing.T) {
	t.Parallel()

	src := &fakeListingSource{listings: []model.Listing{listing("100")}}
	cat := NewCatalog(src)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cat.EnsureLoaded(context.Background())
			cat.Get("100")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, 1, cat.Len())
}

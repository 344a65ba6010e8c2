package statusstore_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/modelgate/pkg/config"
	"github.com/germanamz/modelgate/pkg/models"
	"github.com/germanamz/modelgate/pkg/registry"
	"github.com/germanamz/modelgate/pkg/statusstore"
)

func listingServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func catalogue(t *testing.T, urlA, urlB string) *models.Map {
	t.Helper()

	cfg, err := config.Parse([]byte(`
providers:
  - id: a
    api_url: ` + urlA + `
    models: [{id: a1}, {id: a2}]
  - id: b
    api_url: ` + urlB + `
    models: [{id: b1}]
`))
	require.NoError(t, err)

	reg, err := registry.New(cfg)
	require.NoError(t, err)

	cat, err := reg.Models(models.UsageDefault)
	require.NoError(t, err)

	return cat
}

func TestMemoryStore(t *testing.T) {
	s := statusstore.NewMemoryStore()
	ctx := context.Background()

	st, err := s.PersistedStatus(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, st)

	require.NoError(t, s.SetStatus(ctx, "x", models.StatusOnline))
	st, err = s.PersistedStatus(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, st)

	snap, updated := s.Snapshot()
	assert.Equal(t, map[string]models.Status{"x": models.StatusOnline}, snap)
	assert.False(t, updated.IsZero())
}

func TestRefresh(t *testing.T) {
	var hitsA, hitsB atomic.Int32
	a := listingServer(t, `{"data":[{"id":"a1"}]}`, &hitsA)
	b := listingServer(t, `{"data":[{"id":"b1"}]}`, &hitsB)

	cat := catalogue(t, a.URL, b.URL)
	store := statusstore.NewMemoryStore()

	res, err := statusstore.NewRefresher(store, statusstore.WithConcurrency(2)).Refresh(context.Background(), cat)
	require.NoError(t, err)

	assert.Equal(t, statusstore.Result{Providers: 2, Models: 3, Online: 2}, res)
	assert.Equal(t, int32(1), hitsA.Load(), "one sweep per provider")
	assert.Equal(t, int32(1), hitsB.Load())

	snap, _ := store.Snapshot()
	assert.Equal(t, map[string]models.Status{
		"a1": models.StatusOnline,
		"a2": models.StatusOffline,
		"b1": models.StatusOnline,
	}, snap)

	// Refreshing again sweeps again; the request-path cache is not used.
	_, err = statusstore.NewRefresher(store).Refresh(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hitsA.Load())
}

func TestRefresh_UnreachableProvider(t *testing.T) {
	var hits atomic.Int32
	a := listingServer(t, `{"data":[{"id":"a1"},{"id":"a2"}]}`, &hits)

	cat := catalogue(t, a.URL, "http://127.0.0.1:1")
	store := statusstore.NewMemoryStore()

	_, err := statusstore.NewRefresher(store).Refresh(context.Background(), cat)
	require.NoError(t, err)

	st, _ := store.PersistedStatus(context.Background(), "b1")
	assert.Equal(t, models.StatusOffline, st)
	st, _ = store.PersistedStatus(context.Background(), "a2")
	assert.Equal(t, models.StatusOnline, st)
}

type failingStore struct{ *statusstore.MemoryStore }

var errDisk = errors.New("disk full")

func (failingStore) SetStatus(context.Context, string, models.Status) error { return errDisk }

func TestRefresh_StoreError(t *testing.T) {
	var hits atomic.Int32
	a := listingServer(t, `{"data":[]}`, &hits)

	cat := catalogue(t, a.URL, a.URL)

	_, err := statusstore.NewRefresher(failingStore{statusstore.NewMemoryStore()}).Refresh(context.Background(), cat)
	require.ErrorIs(t, err, errDisk)
}

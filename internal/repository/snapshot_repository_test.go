package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"products-dashboard/internal/models"
)

const snapshotJSON = `[
	{"id": 1, "title": "Classic Tee", "price": 25, "description": "Cotton", "category": {"id": 1, "name": "Clothes"}, "images": ["https://img.example/1.png"]},
	{"id": "2", "title": "Desk Lamp", "price": "39.90", "description": "LED", "images": []}
]`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ===========================================
// File source
// ===========================================

func TestSnapshotRepository_LoadFromFile(t *testing.T) {
	repo := NewSnapshotRepository(writeSnapshot(t, snapshotJSON), nil, 0, nil, quietLogger())

	products, err := repo.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, models.ProductID("1"), products[0].ID)
	assert.Equal(t, "Clothes", products[0].CategoryName())
	assert.Equal(t, models.ProductID("2"), products[1].ID)
	assert.Equal(t, 39.9, products[1].Price.Float64())
	assert.Equal(t, models.NotAvailable, products[1].CategoryName())
}

func TestSnapshotRepository_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	repo := NewSnapshotRepository(path, nil, 0, nil, quietLogger())

	_, err := repo.Load(context.Background())

	var loadErr *models.DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Source)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSnapshotRepository_MalformedFile(t *testing.T) {
	repo := NewSnapshotRepository(writeSnapshot(t, `{"not": "an array"}`), nil, 0, nil, quietLogger())

	_, err := repo.Load(context.Background())

	var loadErr *models.DataLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestSnapshotRepository_EmptyArray(t *testing.T) {
	repo := NewSnapshotRepository(writeSnapshot(t, `[]`), nil, 0, nil, quietLogger())

	products, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

// ===========================================
// URL source
// ===========================================

func TestSnapshotRepository_LoadFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotJSON))
	}))
	defer server.Close()

	repo := NewSnapshotRepository(server.URL+"/data.json", nil, time.Minute, server.Client(), quietLogger())

	products, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestSnapshotRepository_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	repo := NewSnapshotRepository(server.URL+"/data.json", nil, time.Minute, server.Client(), quietLogger())

	_, err := repo.Load(context.Background())

	var loadErr *models.DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, http.StatusNotFound, loadErr.StatusCode)
}

func TestSnapshotRepository_ConcurrentLoadsShareResults(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte(snapshotJSON))
	}))
	defer server.Close()

	repo := NewSnapshotRepository(server.URL, nil, time.Minute, server.Client(), quietLogger())

	var wg sync.WaitGroup
	results := make([][]models.Product, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			products, err := repo.Load(context.Background())
			assert.NoError(t, err)
			results[i] = products
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&hits), int32(5))
	for _, products := range results {
		assert.Len(t, products, 2)
	}

	// results are independent copies
	results[0][0].Title = "changed"
	assert.Equal(t, "Classic Tee", results[1][0].Title)
}

func TestSnapshotRepository_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte(snapshotJSON))
	}))
	defer server.Close()

	repo := NewSnapshotRepository(server.URL, nil, time.Minute, server.Client(), quietLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := repo.Load(ctxA)
		errA <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		products []models.Product
		err      error
	}
	resB := make(chan result, 1)
	go func() {
		products, err := repo.Load(context.Background())
		resB <- result{products, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		var loadErr *models.DataLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Len(t, res.products, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&hits), int32(2))
}

func TestSnapshotRepository_RefreshRereadsSource(t *testing.T) {
	path := writeSnapshot(t, `[{"id": 1, "title": "Old", "price": 1, "images": []}]`)
	repo := NewSnapshotRepository(path, nil, 0, nil, quietLogger())

	products, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Old", products[0].Title)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1, "title": "New", "price": 1, "images": []}]`), 0o600))

	products, err = repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New", products[0].Title)
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://example.com/data.json"))
	assert.True(t, isURL("HTTP://example.com/data.json"))
	assert.False(t, isURL("data.json"))
	assert.False(t, isURL("/var/data/data.json"))
}

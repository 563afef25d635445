package report_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stackvity/sales-report/internal/testutil"
	"github.com/stackvity/sales-report/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// delayedOpener serves in-memory files, sleeping per path before opening.
func delayedOpener(files map[string]string, delays map[string]time.Duration, completed *[]string, mu *sync.Mutex) report.FileOpener {
	return func(path string) (io.ReadCloser, error) {
		time.Sleep(delays[path])
		mu.Lock()
		*completed = append(*completed, path)
		mu.Unlock()
		content, ok := files[path]
		if !ok {
			return nil, errors.New("no such in-memory file")
		}
		return io.NopCloser(strings.NewReader(content)), nil
	}
}

func TestCoordinator_PreservesInputOrder(t *testing.T) {
	files := map[string]string{
		"2021.txt": "1,1,0\n",
		"2022.txt": "1,2,0\n",
		"2023.txt": "1,3,0\n",
	}
	delays := map[string]time.Duration{
		"2021.txt": 60 * time.Millisecond,
		"2022.txt": 30 * time.Millisecond,
		"2023.txt": 0,
	}
	var mu sync.Mutex
	var completed []string

	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Opener: delayedOpener(files, delays, &completed, &mu)})
	require.NoError(t, err)

	paths := []string{"2021.txt", "2022.txt", "2023.txt"}
	summaries, err := coord.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	for i, path := range paths {
		assert.Equal(t, path, summaries[i].Path)
		assert.Equal(t, int64(i+1), summaries[i].TotalUnits)
	}
	assert.Equal(t, []string{"2023.txt", "2022.txt", "2021.txt"}, completed, "Files should finish in reverse order under the injected delays")
}

func TestCoordinator_FilesRunConcurrently(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})
	opener := func(path string) (io.ReadCloser, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if n == 3 {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		running.Add(-1)
		return io.NopCloser(strings.NewReader("1,1,0\n")), nil
	}

	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Opener: opener})
	require.NoError(t, err)

	_, err = coord.Run(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), peak.Load(), "Every file must get its own goroutine")
}

func TestCoordinator_MaxParallelFiles(t *testing.T) {
	var running, peak atomic.Int32
	opener := func(string) (io.ReadCloser, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return io.NopCloser(strings.NewReader("1,1,0\n")), nil
	}

	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Opener: opener, MaxParallelFiles: 2})
	require.NoError(t, err)

	summaries, err := coord.Run(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, summaries, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCoordinator_MissingFileIsolated(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "2021_order_details.txt")
	testutil.CreateDummyFile(t, good, "1,5,10\n")
	missing := filepath.Join(dir, "2022_order_details.txt")

	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{})
	require.NoError(t, err)

	summaries, err := coord.Run(context.Background(), []string{missing, good})
	require.NoError(t, err, "Per-file failures must not fail the run")
	require.Len(t, summaries, 2)

	assert.ErrorIs(t, summaries[0].Err, report.ErrFileStream)
	assert.Equal(t, int64(0), summaries[0].ValidLines)
	assert.NoError(t, summaries[1].Err)
	assert.Equal(t, "45.00", summaries[1].TotalCostAfterDiscount.StringFixed(2))
}

func TestCoordinator_Idempotent(t *testing.T) {
	path := writeOrders(t, "orders.txt", scenarioLines+"1,9,3\n")
	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{LineWorkers: 3})
	require.NoError(t, err)

	first, err := coord.Run(context.Background(), []string{path, path})
	require.NoError(t, err)
	second, err := coord.Run(context.Background(), []string{path, path})
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].TotalCostAfterDiscount.String(), second[i].TotalCostAfterDiscount.String())
		assert.Equal(t, first[i].TotalUnits, second[i].TotalUnits)
		assert.Equal(t, first[i].RejectedLines, second[i].RejectedLines)
		assert.Equal(t, *first[i].BestPurchase, *second[i].BestPurchase)
	}
}

func TestCoordinator_EmptyPaths(t *testing.T) {
	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{})
	require.NoError(t, err)

	summaries, err := coord.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestCoordinator_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var opened atomic.Bool
	opener := func(string) (io.ReadCloser, error) {
		opened.Store(true)
		return io.NopCloser(strings.NewReader("")), nil
	}
	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Opener: opener})
	require.NoError(t, err)

	summaries, err := coord.Run(ctx, []string{"a.txt"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, summaries)
	assert.False(t, opened.Load(), "No Aggregator may start after cancellation")
}

func TestCoordinator_CancelDuringRunDoesNotAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opener := func(string) (io.ReadCloser, error) {
		cancel()
		return io.NopCloser(strings.NewReader("1,5,10\n")), nil
	}
	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Opener: opener})
	require.NoError(t, err)

	summaries, err := coord.Run(ctx, []string{"a.txt"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(1), summaries[0].ValidLines)
}

func TestCoordinator_HooksReceiveRunCompletion(t *testing.T) {
	path := writeOrders(t, "orders.txt", "1,5,10\n")

	mockHooks := new(testutil.MockHooks)
	mockHooks.On("OnFileStarted", path).Return(nil).Once()
	mockHooks.On("OnFileCompleted", path, mock.Anything, mock.Anything).Return(nil).Once()
	mockHooks.On("OnRunComplete", mock.MatchedBy(func(s []report.FileSummary) bool {
		return len(s) == 1 && s[0].Path == path
	})).Return(nil).Once()

	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Hooks: mockHooks})
	require.NoError(t, err)
	_, err = coord.Run(context.Background(), []string{path})
	require.NoError(t, err)

	mockHooks.AssertExpectations(t)
}

func TestCoordinator_AggregatorFactory(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	factory := func(path string, products report.ProductLookup, opts report.Options) report.FileAggregator {
		mu.Lock()
		seen = append(seen, path)
		mu.Unlock()
		return report.NewAggregator(path, products, opts)
	}

	opener := func(string) (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("1,1,0\n")), nil }
	coord, err := report.NewCoordinator(widgetCatalog(), report.Options{Opener: opener})
	require.NoError(t, err)

	_, err = coord.WithAggregatorFactory(factory).Run(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, seen)
}

func TestNewCoordinator_Validation(t *testing.T) {
	testCases := []struct {
		name string
		opts report.Options
	}{
		{name: "Negative parallelism", opts: report.Options{MaxParallelFiles: -1}},
		{name: "Negative line workers", opts: report.Options{LineWorkers: -2}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := report.NewCoordinator(widgetCatalog(), tc.opts)
			assert.ErrorIs(t, err, report.ErrConfigValidation)
		})
	}

	_, err := report.NewCoordinator(nil, report.Options{})
	assert.ErrorIs(t, err, report.ErrConfigValidation)
}

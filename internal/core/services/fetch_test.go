package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

func sequentialIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i+1)
	}
	return ids
}

func TestFetch_NoQueries(t *testing.T) {
	svc := NewFetchService(&fakeSource{}, newFakeRecordStore(), &fakeCheckpointStore{}, FetchOptions{})

	_, err := svc.Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetch_AllNew(t *testing.T) {
	source := &fakeSource{ids: sequentialIDs(25)}
	records := newFakeRecordStore()
	checkpoints := &fakeCheckpointStore{}
	svc := NewFetchService(source, records, checkpoints, FetchOptions{PageSize: 25, BatchSize: 10})

	report, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	assert.Equal(t, 25, report.New)
	assert.Equal(t, 0, report.Duplicate)
	assert.Equal(t, 0, report.Failed)

	// Batches of 10, 10, 5.
	require.Len(t, source.fetched, 3)
	assert.Len(t, source.fetched[0], 10)
	assert.Len(t, source.fetched[1], 10)
	assert.Len(t, source.fetched[2], 5)

	n, err := records.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	// One run summary was recorded.
	runs, err := records.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fetch", runs[0].Kind)
	assert.Equal(t, 25, runs[0].Counts["new"])
}

func TestFetch_ResumeAfterInterrupt(t *testing.T) {
	source := &fakeSource{ids: sequentialIDs(25)}
	records := newFakeRecordStore()
	checkpoints := &fakeCheckpointStore{}

	// Cancel the run while the first batch is in flight. The batch still
	// commits; the cancellation is observed before the second one starts.
	ctx, cancel := context.WithCancel(context.Background())
	source.onFetch = func(call int, _ []string) {
		if call == 1 {
			cancel()
		}
	}

	svc := NewFetchService(source, records, checkpoints, FetchOptions{PageSize: 25, BatchSize: 10})
	report, err := svc.Fetch(ctx, []string{"magnesium"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, report.New)

	n, err := records.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// Resume: the already-committed 10 are deduplicated, only the
	// remaining 15 are fetched.
	source.onFetch = nil
	report, err = svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	assert.Equal(t, 15, report.New)
	assert.Equal(t, 10, report.Duplicate)

	resumed := source.fetched[1:]
	require.Len(t, resumed, 2)
	assert.Equal(t, []string{"11", "12", "13", "14", "15", "16", "17", "18", "19", "20"}, resumed[0])
	assert.Equal(t, []string{"21", "22", "23", "24", "25"}, resumed[1])

	n, err = records.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	// A third run finds nothing new: the cursor is past the listing.
	report, err = svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.New)
	assert.Equal(t, 0, report.Duplicate)
}

func TestFetch_BatchFailureIsSkipped(t *testing.T) {
	source := &fakeSource{
		ids:    sequentialIDs(25),
		failOn: map[int]error{2: fmt.Errorf("gateway timeout")},
	}
	checkpoints := &fakeCheckpointStore{}
	svc := NewFetchService(source, newFakeRecordStore(), checkpoints,
		FetchOptions{PageSize: 25, BatchSize: 10})

	report, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	assert.Equal(t, 15, report.New)
	assert.Equal(t, 10, report.Failed)
	require.Len(t, source.fetched, 3)

	// The failed IDs are recorded, not marked processed, and the cursor
	// stays at their page so a later run retries them.
	cp, err := checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cp.Cursor("magnesium"))
	assert.True(t, cp.FailedIDs["11"])
	assert.True(t, cp.FailedIDs["20"])
	assert.False(t, cp.Seen("11"))
}

func TestFetch_FailedBatchRetriedNextRun(t *testing.T) {
	source := &fakeSource{
		ids:    sequentialIDs(25),
		failOn: map[int]error{2: fmt.Errorf("gateway timeout")},
	}
	checkpoints := &fakeCheckpointStore{}
	svc := NewFetchService(source, newFakeRecordStore(), checkpoints,
		FetchOptions{PageSize: 25, BatchSize: 10})

	_, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	// The outage is over; the failed batch alone is re-fetched.
	report, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	assert.Equal(t, 10, report.New)
	assert.Equal(t, 15, report.Duplicate)
	assert.Equal(t, 0, report.Failed)

	retried := source.fetched[3]
	assert.Equal(t, []string{"11", "12", "13", "14", "15", "16", "17", "18", "19", "20"}, retried)

	cp, err := checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, cp.Cursor("magnesium"))
	assert.Empty(t, cp.FailedIDs)
	assert.True(t, cp.Seen("11"))
}

func TestFetch_MissingRecordsCountAsFailed(t *testing.T) {
	source := &fakeSource{
		ids:     sequentialIDs(5),
		missing: map[string]bool{"3": true},
	}
	checkpoints := &fakeCheckpointStore{}
	svc := NewFetchService(source, newFakeRecordStore(), checkpoints, FetchOptions{})

	report, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.New)
	assert.Equal(t, 1, report.Failed)

	// The missing ID is still marked processed so it is not re-requested.
	cp, err := checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, cp.Seen("3"))
}

func TestFetch_MaxPerQuery(t *testing.T) {
	source := &fakeSource{ids: sequentialIDs(25)}
	svc := NewFetchService(source, newFakeRecordStore(), &fakeCheckpointStore{},
		FetchOptions{PageSize: 10, BatchSize: 10, MaxPerQuery: 10})

	report, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)
	assert.Equal(t, 10, report.New)
}

func TestFetch_PagesThroughListing(t *testing.T) {
	source := &fakeSource{ids: sequentialIDs(25)}
	checkpoints := &fakeCheckpointStore{}
	svc := NewFetchService(source, newFakeRecordStore(), checkpoints,
		FetchOptions{PageSize: 10, BatchSize: 10})

	report, err := svc.Fetch(context.Background(), []string{"magnesium"})
	require.NoError(t, err)

	assert.Equal(t, 25, report.New)
	assert.Equal(t, 3, source.searchCalls)

	cp, err := checkpoints.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, cp.Cursor("magnesium"))
}

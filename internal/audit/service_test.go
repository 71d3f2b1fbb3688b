package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	entries    []Entry
	lastLimit  int
	lastOffset int
	lastFilter TimelineFilters
}

func (s *stubRepo) Timeline(_ context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	s.lastFilter = filters
	s.lastLimit = limit
	s.lastOffset = offset
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}

func makeEntries(n int) []Entry {
	entries := make([]Entry, 0, n)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{
			Actor:      "admin-1",
			Action:     "create",
			Collection: "events",
			DocumentID: fmt.Sprintf("doc-%d", i),
			At:         base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return entries
}

func TestTimelineDefaultsAndClamping(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(5)}
	service := NewService(repo)

	result, err := service.Timeline(context.Background(), TimelineFilters{Page: -3, PageSize: 0})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Paging.Page)
	assert.Equal(t, defaultPageSize, result.Paging.PageSize)
	assert.Equal(t, defaultPageSize+1, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
	assert.False(t, result.Paging.HasNext)
	assert.Len(t, result.Entries, 5)

	_, err = service.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.lastLimit)
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(25)}
	service := NewService(repo)

	first, err := service.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, first.Entries, 10)
	assert.True(t, first.Paging.HasNext)
	assert.Equal(t, 2, first.Paging.NextPage)
	assert.Zero(t, first.Paging.PrevPage)

	last, err := service.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, last.Entries, 5)
	assert.False(t, last.Paging.HasNext)
	assert.Equal(t, 2, last.Paging.PrevPage)
	assert.Zero(t, last.Paging.NextPage)
	assert.Equal(t, 20, repo.lastOffset)
}

func TestTimelineEmptyPageIsNotNil(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)

	result, err := service.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.NotNil(t, result.Entries)
	assert.Empty(t, result.Entries)
}

func TestTimelinePassesFilters(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)

	_, err := service.Timeline(context.Background(), TimelineFilters{Collection: "events", Actor: "u1", Action: "delete"})
	require.NoError(t, err)
	assert.Equal(t, "events", repo.lastFilter.Collection)
	assert.Equal(t, "u1", repo.lastFilter.Actor)
	assert.Equal(t, "delete", repo.lastFilter.Action)
}

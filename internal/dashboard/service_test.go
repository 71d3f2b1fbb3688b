package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	counts   map[string]int
	progress []EventProgress
	calls    int
}

func (r *memoryRepo) CollectionCounts(ctx context.Context) (map[string]int, error) {
	r.calls++
	return r.counts, nil
}

func (r *memoryRepo) EventTaskProgress(ctx context.Context) ([]EventProgress, error) {
	return r.progress, nil
}

func TestSummaryComputesCompletion(t *testing.T) {
	repo := &memoryRepo{
		counts: map[string]int{"events": 2, "tasks": 5},
		progress: []EventProgress{
			{EventID: "e1", EventName: "Launch", TotalTasks: 4, DoneTasks: 3},
			{EventID: "e2", EventName: "Festival", TotalTasks: 0, DoneTasks: 0},
			{EventID: "e3", EventName: "Meetup", TotalTasks: 3, DoneTasks: 1},
		},
	}
	svc := NewService(repo, nil, time.Minute)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Counts["events"])
	require.Equal(t, 75.0, summary.Events[0].Completion)
	require.Equal(t, 0.0, summary.Events[1].Completion)
	require.Equal(t, 33.3, summary.Events[2].Completion)
}

func TestSummaryWithNoEvents(t *testing.T) {
	repo := &memoryRepo{counts: map[string]int{}}
	svc := NewService(repo, nil, time.Minute)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary.Events)
	require.Empty(t, summary.Events)
}

func TestSummaryUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &memoryRepo{counts: map[string]int{"events": 1}}
	svc := NewService(repo, client, time.Minute)

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	// second read is served from redis
	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
	require.Equal(t, 1, summary.Counts["events"])

	// expiry forces a recompute
	mr.FastForward(2 * time.Minute)
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

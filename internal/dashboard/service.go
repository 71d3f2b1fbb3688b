package dashboard

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const cacheKey = "backstage:dashboard"

// Service computes the dashboard summary with a short-lived cache.
type Service struct {
	repo     RepositoryPort
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewService builds a Service. The cache client may be nil.
func NewService(repo RepositoryPort, cache *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// Summary returns the aggregated dashboard payload. The two aggregate
// queries run in parallel.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	var (
		counts map[string]int
		events []EventProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.CollectionCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.repo.EventTaskProgress(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range events {
		events[i].Completion = completion(events[i].DoneTasks, events[i].TotalTasks)
	}
	if events == nil {
		events = []EventProgress{}
	}

	summary := &Summary{Counts: counts, Events: events}
	s.toCache(ctx, summary)
	return summary, nil
}

// completion returns the percentage of done tasks, rounded to one decimal.
func completion(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*1000) / 10
}

func (s *Service) fromCache(ctx context.Context) *Summary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *Service) toCache(ctx context.Context, summary *Summary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err()
}

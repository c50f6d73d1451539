// Package service ranks league data served by a repository.Store. It fetches
// the working set, runs the standings engine and memoizes results per store
// version.
package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/leaderboard"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Provider source names used in errors, logs and metrics.
const (
	SourceCompetitors = "competitors"
	SourceRounds      = "rounds"
	SourceSubmissions = "submissions"
	SourceVotes       = "votes"
	SourceVersion     = "version"
)

const defaultCacheSize = 256

// Service implements the API dependencies for the standings system.
type Service struct {
	mu sync.RWMutex

	store         repository.Store
	cache         *resultCache
	flight        singleflight.Group
	cacheSize     int
	defaultMetric leaderboard.Metric

	started bool
	logger  logger.Logger

	requests     atomic.Uint64
	hits         atomic.Uint64
	misses       atomic.Uint64
	failures     atomic.Uint64
	lastComputed atomic.Int64 // unix nanos
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the data store. The default is an empty in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCacheSize bounds the number of memoized leaderboards. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.cacheSize = n
		}
	}
}

// WithDefaultMetric sets the metric used when a query names none.
func WithDefaultMetric(m leaderboard.Metric) Option {
	return func(s *Service) {
		if m.Valid() {
			s.defaultMetric = m
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheSize:     defaultCacheSize,
		defaultMetric: leaderboard.MetricTotalPoints,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.cache = newResultCache(s.cacheSize)
	return s
}

// Start prepares the service for requests.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	profiles, err := s.store.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.started = true
	s.logger.Info(ctx, "standings service started",
		logger.Int("profiles", len(profiles)),
		logger.Int("cacheSize", s.cacheSize),
		logger.String("defaultMetric", string(s.defaultMetric)),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "standings service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// DefaultMetric returns the metric applied to queries that name none.
func (s *Service) DefaultMetric() leaderboard.Metric {
	return s.defaultMetric
}

// Leaderboard ranks profile under q. The empty profile ranks every stored
// league together. The result may be shared with other callers and must be
// treated as read-only.
func (s *Service) Leaderboard(ctx context.Context, profile model.ProfileID, q leaderboard.Query) (*leaderboard.Result, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.requests.Add(1)
	if q.Metric == "" {
		q.Metric = s.defaultMetric
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	version, err := s.store.Version(ctx)
	if err != nil {
		s.failures.Add(1)
		metrics.RecordProviderError(SourceVersion)
		return nil, &FetchError{Failures: []SourceError{{Source: SourceVersion, Err: err}}}
	}
	key := string(profile) + "|" + strconv.FormatUint(version, 10) + "|" + q.Key()

	if r, ok := s.cache.get(key); ok {
		s.hits.Add(1)
		metrics.RecordCacheHit()
		return r, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		if r, ok := s.cache.get(key); ok {
			return r, nil
		}
		s.misses.Add(1)
		metrics.RecordCacheMiss()

		ds, err := s.fetch(ctx, profile)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := leaderboard.Compute(ds, q)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)

		metrics.RecordComputation(string(q.Metric))
		metrics.RecordComputeLatency(float64(elapsed.Microseconds()) / 1000)
		metrics.UpdateLastResult(len(res.Entries), res.Statistics.TotalRounds, res.Statistics.TotalVotes)
		s.lastComputed.Store(time.Now().UnixNano())

		s.logger.Debug(ctx, "leaderboard computed",
			logger.String("profile", string(profile)),
			logger.String("metric", string(q.Metric)),
			logger.Int("entries", len(res.Entries)),
			logger.Int("rounds", res.Statistics.TotalRounds),
			logger.Duration("elapsed", elapsed),
		)

		r := &res
		s.cache.put(key, r)
		metrics.UpdateCacheEntries(s.cache.size())
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*leaderboard.Result), nil
}

// Rank returns the entry of one competitor under q.
func (s *Service) Rank(ctx context.Context, profile model.ProfileID, id model.CompetitorID, q leaderboard.Query) (types.LeaderboardEntry, error) {
	res, err := s.Leaderboard(ctx, profile, q)
	if err != nil {
		return types.LeaderboardEntry{}, err
	}
	for _, e := range res.Entries {
		if e.CompetitorID == id {
			return e, nil
		}
	}
	return types.LeaderboardEntry{}, fmt.Errorf("%w: %s", ErrCompetitorNotRanked, id)
}

// RoundStandings returns the per-round results table of one round.
func (s *Service) RoundStandings(ctx context.Context, profile model.ProfileID, round model.RoundID) ([]types.RoundStanding, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.requests.Add(1)

	ds, err := s.fetch(ctx, profile)
	if err != nil {
		return nil, err
	}
	if _, ok := ds.Round(round); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, round)
	}
	return leaderboard.Standings(ds, round), nil
}

// Profiles lists the stored leagues.
func (s *Service) Profiles(ctx context.Context) ([]model.Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Profiles(ctx)
}

// fetch loads the four collections of profile concurrently. Every failing
// source is reported; partial data is discarded.
func (s *Service) fetch(ctx context.Context, profile model.ProfileID) (model.Dataset, error) {
	var (
		ds   model.Dataset
		errs [4]error
		wg   sync.WaitGroup
	)
	// every source runs to completion so all failures are reported together
	loads := [4]func(){
		func() { ds.Competitors, errs[0] = s.store.Competitors(ctx, profile) },
		func() { ds.Rounds, errs[1] = s.store.Rounds(ctx, profile) },
		func() { ds.Submissions, errs[2] = s.store.Submissions(ctx, profile) },
		func() { ds.Votes, errs[3] = s.store.Votes(ctx, profile) },
	}
	wg.Add(len(loads))
	for _, load := range loads {
		go func() {
			defer wg.Done()
			load()
		}()
	}
	wg.Wait()

	sources := [4]string{SourceCompetitors, SourceRounds, SourceSubmissions, SourceVotes}
	var fe FetchError
	for i, err := range errs {
		if err == nil {
			continue
		}
		fe.Failures = append(fe.Failures, SourceError{Source: sources[i], Err: err})
		metrics.RecordProviderError(sources[i])
	}
	if len(fe.Failures) > 0 {
		s.failures.Add(1)
		s.logger.Warn(ctx, "fetching league data failed",
			logger.String("profile", string(profile)),
			logger.Any("sources", fe.Sources()),
			logger.Error(&fe),
		)
		return model.Dataset{}, &fe
	}
	return ds, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       started,
		"cacheSize":     s.cacheSize,
		"cachedResults": s.cache.size(),
		"requests":      s.requests.Load(),
		"cacheHits":     s.hits.Load(),
		"cacheMisses":   s.misses.Load(),
		"fetchFailures": s.failures.Load(),
		"defaultMetric": string(s.defaultMetric),
	}
	if ns := s.lastComputed.Load(); ns > 0 {
		stats["lastComputedAt"] = time.Unix(0, ns).UTC()
	}
	return stats
}

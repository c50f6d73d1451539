package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

type league struct {
	name        string
	competitors []model.Competitor
	rounds      []model.Round
	submissions []model.Submission
	votes       []model.Vote
}

// MemoryStore is a map-backed Store. Every read returns a fresh copy.
type MemoryStore struct {
	mu      sync.RWMutex
	leagues map[model.ProfileID]*league
	version atomic.Uint64
	closed  atomic.Bool
	logger  logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		leagues: make(map[model.ProfileID]*league),
		logger:  o.logger,
	}
}

// collect gathers one collection from the selected profiles in profile order.
// In the aggregated view each item is passed through qualify, if set.
func collect[T any](s *MemoryStore, profile model.ProfileID, pick func(*league) []T, qualify func(model.ProfileID, T) T) ([]T, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if profile != "" {
		l, ok := s.leagues[profile]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, profile)
		}
		return slices.Clone(pick(l)), nil
	}

	ids := make([]model.ProfileID, 0, len(s.leagues))
	for id := range s.leagues {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []T
	for _, id := range ids {
		for _, v := range pick(s.leagues[id]) {
			if qualify != nil {
				v = qualify(id, v)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// Competitors implements CompetitorSource.
func (s *MemoryStore) Competitors(_ context.Context, profile model.ProfileID) ([]model.Competitor, error) {
	return collect(s, profile, func(l *league) []model.Competitor { return l.competitors }, nil)
}

// Rounds implements RoundSource.
func (s *MemoryStore) Rounds(_ context.Context, profile model.ProfileID) ([]model.Round, error) {
	rounds, err := collect(s, profile, func(l *league) []model.Round { return l.rounds },
		func(owner model.ProfileID, r model.Round) model.Round {
			r.ID = QualifyRound(owner, r.ID)
			return r
		})
	if err != nil {
		return nil, err
	}
	sortRounds(rounds)
	return rounds, nil
}

// Votes implements VoteSource.
func (s *MemoryStore) Votes(_ context.Context, profile model.ProfileID) ([]model.Vote, error) {
	return collect(s, profile, func(l *league) []model.Vote { return l.votes },
		func(owner model.ProfileID, v model.Vote) model.Vote {
			v.RoundID = QualifyRound(owner, v.RoundID)
			return v
		})
}

// Submissions implements SubmissionSource.
func (s *MemoryStore) Submissions(_ context.Context, profile model.ProfileID) ([]model.Submission, error) {
	return collect(s, profile, func(l *league) []model.Submission { return l.submissions },
		func(owner model.ProfileID, sub model.Submission) model.Submission {
			sub.RoundID = QualifyRound(owner, sub.RoundID)
			return sub
		})
}

// Profiles implements Store.
func (s *MemoryStore) Profiles(_ context.Context) ([]model.Profile, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Profile, 0, len(s.leagues))
	for id, l := range s.leagues {
		out = append(out, model.Profile{ID: id, Name: l.name})
	}
	slices.SortFunc(out, func(a, b model.Profile) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out, nil
}

// Version implements Store.
func (s *MemoryStore) Version(_ context.Context) (uint64, error) {
	return s.version.Load(), nil
}

// SaveProfile implements Writer.
func (s *MemoryStore) SaveProfile(ctx context.Context, p model.Profile) error {
	return s.write(ctx, p.ID, func(l *league) {
		l.name = p.Name
	})
}

// SaveCompetitors implements Writer.
func (s *MemoryStore) SaveCompetitors(ctx context.Context, profile model.ProfileID, competitors []model.Competitor) error {
	return s.write(ctx, profile, func(l *league) {
		l.competitors = upsert(l.competitors, competitors, func(c model.Competitor) model.CompetitorID { return c.ID })
	})
}

// SaveRounds implements Writer.
func (s *MemoryStore) SaveRounds(ctx context.Context, profile model.ProfileID, rounds []model.Round) error {
	return s.write(ctx, profile, func(l *league) {
		l.rounds = upsert(l.rounds, rounds, func(r model.Round) model.RoundID { return r.ID })
	})
}

// SaveSubmissions implements Writer.
func (s *MemoryStore) SaveSubmissions(ctx context.Context, profile model.ProfileID, submissions []model.Submission) error {
	type key struct {
		round model.RoundID
		uri   string
	}
	return s.write(ctx, profile, func(l *league) {
		l.submissions = upsert(l.submissions, submissions, func(sub model.Submission) key { return key{sub.RoundID, sub.URI} })
	})
}

// SaveVotes implements Writer.
func (s *MemoryStore) SaveVotes(ctx context.Context, profile model.ProfileID, votes []model.Vote) error {
	type key struct {
		round model.RoundID
		voter model.CompetitorID
		uri   string
	}
	return s.write(ctx, profile, func(l *league) {
		l.votes = upsert(l.votes, votes, func(v model.Vote) key { return key{v.RoundID, v.VoterID, v.SubmissionURI} })
	})
}

// Close implements Store. Reads and writes fail afterwards.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *MemoryStore) write(ctx context.Context, profile model.ProfileID, apply func(*league)) error {
	if profile == "" {
		return ErrProfileRequired
	}
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	l, ok := s.leagues[profile]
	if !ok {
		l = &league{name: string(profile)}
		s.leagues[profile] = l
		s.logger.Debug(ctx, "profile created", logger.String("profile", string(profile)))
	}
	apply(l)
	s.mu.Unlock()

	s.version.Add(1)
	return nil
}

// upsert replaces items of dst that share a key with src and appends the rest,
// keeping first-seen order.
func upsert[T any, K comparable](dst, src []T, key func(T) K) []T {
	pos := make(map[K]int, len(dst))
	for i, v := range dst {
		pos[key(v)] = i
	}
	for _, v := range src {
		k := key(v)
		if i, ok := pos[k]; ok {
			dst[i] = v
			continue
		}
		pos[k] = len(dst)
		dst = append(dst, v)
	}
	return dst
}

func sortRounds(rounds []model.Round) {
	sort.SliceStable(rounds, func(i, j int) bool {
		if !rounds[i].CreatedAt.Equal(rounds[j].CreatedAt) {
			return rounds[i].CreatedAt.Before(rounds[j].CreatedAt)
		}
		return rounds[i].ID < rounds[j].ID
	})
}

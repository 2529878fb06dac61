package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/config"
	"github.com/chezmonami/marketplace-server/internal/errors"
	redisclient "github.com/chezmonami/marketplace-server/internal/redis"
	"github.com/chezmonami/marketplace-server/internal/repository"
)

// AnalyticsService tracks daily page views in redis and aggregates
// catalog counts for the admin dashboard.
type AnalyticsService struct {
	redis         *redisclient.Client
	structureRepo repository.StructureRepository
	adminRepo     repository.AdminRepository
}

func NewAnalyticsService(
	redis *redisclient.Client,
	structureRepo repository.StructureRepository,
	adminRepo repository.AdminRepository,
) *AnalyticsService {
	return &AnalyticsService{
		redis:         redis,
		structureRepo: structureRepo,
		adminRepo:     adminRepo,
	}
}

// RecordView bumps the daily counter for an entity. Failures are
// logged and swallowed; view tracking never blocks a page load.
func (s *AnalyticsService) RecordView(ctx context.Context, kind, id string) {
	day := time.Now().UTC().Format("2006-01-02")
	key := redisclient.ViewCounterKey(kind, id, day)

	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, config.ViewCounterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("failed to record view")
	}
}

// ViewsFor sums an entity's counters over the trailing days.
func (s *AnalyticsService) ViewsFor(ctx context.Context, kind, id string, days int) (int64, error) {
	if days < 1 {
		days = 1
	}
	var total int64
	now := time.Now().UTC()
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		count, err := s.redis.Get(ctx, redisclient.ViewCounterKey(kind, id, day)).Int64()
		if err != nil {
			continue // missing day counters are zero
		}
		total += count
	}
	return total, nil
}

type Stats struct {
	Structures int `json:"structures"`
	Admins     int `json:"admins"`
}

func (s *AnalyticsService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	structures, err := s.structureRepo.Count(ctx)
	if err != nil {
		return nil, errors.Database(err)
	}
	stats.Structures = structures

	admins, err := s.adminRepo.Count(ctx)
	if err != nil {
		return nil, errors.Database(err)
	}
	stats.Admins = admins

	return stats, nil
}

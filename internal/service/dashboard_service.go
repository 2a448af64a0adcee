package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuskit/college-admin-api/internal/models"
	appErrors "github.com/campuskit/college-admin-api/pkg/errors"
)

type collegeStatsRepository interface {
	Stats(ctx context.Context, collegeID string) (*models.CollegeStats, error)
}

// DashboardService serves aggregated college statistics, cached in Redis.
// Redis failures degrade to querying the database directly.
type DashboardService struct {
	colleges collegeStatsRepository
	redis    *redis.Client
	metrics  *MetricsService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(colleges collegeStatsRepository, redisClient *redis.Client, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{colleges: colleges, redis: redisClient, metrics: metrics, ttl: ttl, logger: logger}
}

// Stats returns the dashboard counters for the actor's college along with
// whether the result came from cache. Super admins may request any college
// explicitly.
func (s *DashboardService) Stats(ctx context.Context, actor *models.User, collegeID string) (*models.CollegeStats, bool, error) {
	if actor.Role != models.RoleSuperAdmin || collegeID == "" {
		collegeID = actor.CollegeID
	}

	if cached := s.fromCache(ctx, collegeID); cached != nil {
		s.metrics.RecordCacheOperation(true)
		return cached, true, nil
	}
	s.metrics.RecordCacheOperation(false)

	stats, err := s.colleges.Stats(ctx, collegeID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard stats")
	}

	s.toCache(ctx, collegeID, stats)
	return stats, false, nil
}

// Invalidate drops the cached stats for a college after a write that
// changes its counters.
func (s *DashboardService) Invalidate(ctx context.Context, collegeID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, statsKey(collegeID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("college_id", collegeID), zap.Error(err))
	}
}

func (s *DashboardService) fromCache(ctx context.Context, collegeID string) *models.CollegeStats {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, statsKey(collegeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		return nil
	}
	var stats models.CollegeStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("dashboard cache entry corrupt", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *DashboardService) toCache(ctx context.Context, collegeID string, stats *models.CollegeStats) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn("failed to encode dashboard stats", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, statsKey(collegeID), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
}

func statsKey(collegeID string) string {
	return fmt.Sprintf("dashboard:stats:%s", collegeID)
}

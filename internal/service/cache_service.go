package service

import (
	"context"
	"encoding/json"
	"fmt"
	"medprep_backend/internal/model"
	"medprep_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	packagesCacheKey   = "medprep:packages"
	packagesCacheTTL   = 10 * time.Minute
	progressKeyPattern = "medprep:progress:%d"
)

// CacheService 读缓存与失效钩子。仪表盘读路径不在本服务内，
// 这里只负责在影响进度的写入后让对应键失效
type CacheService struct {
	Redis *redis.Client
}

func NewCacheService(rdb *redis.Client) *CacheService {
	return &CacheService{Redis: rdb}
}

func (s *CacheService) GetPackages(ctx context.Context) ([]model.Package, bool) {
	if s.Redis == nil {
		return nil, false
	}
	val, err := s.Redis.Get(ctx, packagesCacheKey).Result()
	if err != nil {
		return nil, false
	}
	var pkgs []model.Package
	if err := json.Unmarshal([]byte(val), &pkgs); err != nil {
		return nil, false
	}
	return pkgs, true
}

func (s *CacheService) SetPackages(ctx context.Context, pkgs []model.Package) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(pkgs)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, packagesCacheKey, payload, packagesCacheTTL).Err(); err != nil {
		logger.Log.Warn("failed to cache package list", zap.Error(err))
	}
}

func (s *CacheService) InvalidatePackages(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(ctx, packagesCacheKey)
}

// InvalidateUserProgress 进度相关写入后的失效钩子，尽力而为
func (s *CacheService) InvalidateUserProgress(userID uint) {
	if s.Redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf(progressKeyPattern, userID)
	if err := s.Redis.Del(ctx, key).Err(); err != nil {
		logger.Log.Warn("failed to invalidate progress cache",
			zap.Uint("userId", userID),
			zap.Error(err),
		)
	}
}

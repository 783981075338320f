package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/atukutisuzume/portfolio-visualizer/config"
	"github.com/atukutisuzume/portfolio-visualizer/internal/model"
	"github.com/atukutisuzume/portfolio-visualizer/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("error not found in cache")

const monthlyPlKeyPrefix = "monthly_pl:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetMonthlyReconciliation(ctx context.Context, rec model.MonthlyReconciliation) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetMonthlyReconciliation start", slog.String("rqID", rqID), slog.String("month", rec.Month))

	recJson, err := json.Marshal(rec)
	if err != nil {
		slog.Error(
			"can't marshall reconciliation in SetMonthlyReconciliation",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("month", rec.Month),
		)
		return errors.New("can't marshall reconciliation")
	}

	_, err = r.redis.Set(ctx, monthlyPlKeyPrefix+rec.Month, recJson, r.cfg.Cache.MonthlyPlExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("month", rec.Month))
		return err
	}

	slog.Debug("SetMonthlyReconciliation completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetMonthlyReconciliation(ctx context.Context, month string) (model.MonthlyReconciliation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetMonthlyReconciliation start", slog.String("rqID", rqID), slog.String("month", month))

	res, err := r.redis.Get(ctx, monthlyPlKeyPrefix+month).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.MonthlyReconciliation{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("month", month))
		return model.MonthlyReconciliation{}, err
	}

	rec := model.MonthlyReconciliation{}
	err = json.Unmarshal([]byte(res), &rec)
	if err != nil {
		slog.Error(
			"can't unmarshall reconciliation in GetMonthlyReconciliation",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.MonthlyReconciliation{}, err
	}

	slog.Debug("GetMonthlyReconciliation completed", slog.String("rqID", rqID))

	return rec, nil
}

func (r *RedisCache) FlushMonthlyReconciliation(ctx context.Context, month string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushMonthlyReconciliation start", slog.String("rqID", rqID), slog.String("month", month))

	_, err := r.redis.Del(ctx, monthlyPlKeyPrefix+month).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("month", month))
		return err
	}

	slog.Debug("FlushMonthlyReconciliation completed", slog.String("rqID", rqID))

	return nil
}

package repo

import (
	"context"
	"time"

	"chkobba-service/internal/config"
	"chkobba-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

// InitRedis connects when an address is configured and leaves RDB nil
// otherwise.
func InitRedis() {
	conf := config.GlobalConfig.Redis
	if conf.Addr == "" {
		logger.Log.Info("redis disabled, room codes reserved in memory")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.String("addr", conf.Addr), zap.Error(err))
	}
	logger.Log.Info("redis connected, room codes shared", zap.String("addr", conf.Addr), zap.Int("db", conf.DB))
}

package service

import (
	"context"
	"time"

	"chkobba-service/internal/config"
	"chkobba-service/internal/service/history"
	"chkobba-service/internal/service/profile"
	"chkobba-service/internal/service/room"
	"chkobba-service/internal/service/turnclock"
	"chkobba-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	Rooms    *room.Service
	Profiles *profile.Service
	History  *history.Service
	Clock    *turnclock.Clock
}

// NewContainer wires the services. db and rdb are optional: without a
// database no history is kept and profiles live in memory only; without
// redis room codes are reserved in memory.
func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	c := &Container{}

	var store profile.Store
	if db != nil {
		store = profile.NewGormStore(db)
		c.History = history.NewService(db)
	}
	c.Profiles = profile.NewService(profile.NewRegistry(), store)

	codes := room.NewMemoryCodeStore()
	if rdb != nil {
		codes = room.NewRedisCodeStore(rdb, config.GlobalConfig.Redis.CodeTTL())
	}

	opts := []room.Option{
		room.WithProfiles(c.Profiles),
		room.WithConfig(room.Config{
			CodeLength:       config.GlobalConfig.Game.RoomCodeLength,
			SubscriberBuffer: config.GlobalConfig.Game.SubscriberBuffer,
		}),
	}
	if c.History != nil {
		opts = append(opts, room.WithRecorder(c.History))
	}
	c.Rooms = room.NewService(codes, opts...)
	c.Clock = turnclock.New(c.Rooms)
	c.Rooms.SetTurnObserver(c.Clock)
	return c
}

// RunReaper closes idle rooms until ctx is done.
func (c *Container) RunReaper(ctx context.Context) error {
	maxIdle := config.GlobalConfig.Game.IdleRoomTimeout()
	if maxIdle <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()

	logger.Log.Info("room reaper started", zap.Duration("maxIdle", maxIdle))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Rooms.ReapIdle(ctx, maxIdle)
		}
	}
}

// Shutdown stops timers and closes every room.
func (c *Container) Shutdown(ctx context.Context) {
	c.Clock.Stop()
	c.Rooms.CloseAll(ctx)
}

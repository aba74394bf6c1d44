package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const attemptKeyPrefix = "emergency_rl:"

type IRedis interface {
	CheckAndTick(ctx context.Context, identifier string, limit int64, window time.Duration) (bool, int64, error)
	Reset(ctx context.Context, identifier string) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

// CheckAndTick atomically counts one attempt for the identifier inside the
// current window. The first attempt opens the window by attaching the TTL.
func (r *redisClient) CheckAndTick(ctx context.Context, identifier string, limit int64, window time.Duration) (bool, int64, error) {
	key := attemptKeyPrefix + identifier

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error incrementing attempt counter for %s: %v", identifier, err))
		return false, 0, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			logrus.Error(fmt.Sprintf("Error setting attempt window for %s: %v", identifier, err))
			return false, count, err
		}
	}

	return count <= limit, count, nil
}

func (r *redisClient) Reset(ctx context.Context, identifier string) error {
	key := attemptKeyPrefix + identifier

	if err := r.client.Del(ctx, key).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error resetting attempt counter for %s: %v", identifier, err))
		return err
	}

	return nil
}

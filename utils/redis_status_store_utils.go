package utils

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
)

const (
	// Redis only has string type, there is no boolean or int, so we use "1" to represent true
	RedisTrue  = "1"
	RedisFalse = "0"

	autopublishKey = "autopublish_enabled"
)

var ctx = context.Background()

// StatusStore keeps small pieces of engine state that must survive a process
// restart: the autonomous-publish toggle and the per-day action counters.
// Everything else is either in Postgres or safely recomputable.
type StatusStore struct {
	inner *redis.Client
}

func GetStatusStore() (*StatusStore, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	_, err := redisClient.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	return &StatusStore{inner: redisClient}, nil
}

// AutopublishEnabled reads the autonomous publishing toggle. A missing key
// means disabled, so a fresh deployment never publishes before an operator
// turns it on.
func (s *StatusStore) AutopublishEnabled() (bool, error) {
	val, err := s.inner.Get(ctx, autopublishKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == RedisTrue, nil
}

func (s *StatusStore) SetAutopublishEnabled(enabled bool) error {
	val := RedisFalse
	if enabled {
		val = RedisTrue
	}
	return s.inner.Set(ctx, autopublishKey, val, 0).Err()
}

func dailyCountKey(service string, day string) string {
	return fmt.Sprintf("daily_count__%s__%s", service, day)
}

// GetDailyCount returns the persisted counter for the given service and
// calendar day ("2006-01-02"). Missing key reads as 0.
func (s *StatusStore) GetDailyCount(service string, day string) (int, error) {
	val, err := s.inner.Get(ctx, dailyCountKey(service, day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func (s *StatusStore) SetDailyCount(service string, day string, count int) error {
	return s.inner.Set(ctx, dailyCountKey(service, day), count, 0).Err()
}

package storage

import (
	"github.com/go-redis/redis"
	"go.uber.org/zap"
)

// RedisConfig contains all settings for the Redis memory.
type RedisConfig struct {
	Addr     string
	Key      string // the hash key all records live under
	Password string
	DB       int
	Logger   *zap.Logger
}

// RedisMemory keeps all records in one redis hash so poll results survive a
// process restart.
type RedisMemory struct {
	logger *zap.Logger
	client *redis.Client
	hkey   string
}

func NewRedisMemory(config RedisConfig) Memory {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hkey := config.Key
	if hkey == "" {
		hkey = "interactivity"
	}

	return &RedisMemory{
		logger: logger,
		hkey:   hkey,
		client: client,
	}
}

func (rm *RedisMemory) Set(key string, value []byte) error {
	rm.logger.Debug("Set", zap.String("key", key))
	return rm.client.HSet(rm.hkey, key, value).Err()
}

func (rm *RedisMemory) Get(key string) ([]byte, bool, error) {
	resp, err := rm.client.HGet(rm.hkey, key).Result()
	switch {
	case err == redis.Nil:
		return nil, false, nil
	case err != nil:
		return nil, false, err
	default:
		return []byte(resp), true, nil
	}
}

func (rm *RedisMemory) Delete(key string) (bool, error) {
	resp, err := rm.client.HDel(rm.hkey, key).Result()
	return resp > 0, err
}

func (rm *RedisMemory) Keys() ([]string, error) {
	return rm.client.HKeys(rm.hkey).Result()
}

func (rm *RedisMemory) Close() error {
	return rm.client.Close()
}

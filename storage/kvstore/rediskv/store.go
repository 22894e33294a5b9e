package rediskv

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"github.com/trezcool/masomo-portal/core"
)

const keyPrefix = "portal:"

// Store is a core.KeyValueStore shared by all the API instances.
// Empty values are indistinguishable from missing keys and read as core.ErrKeyNotFound.
type Store struct {
	rds *redis.Redis
}

var _ core.KeyValueStore = (*Store)(nil)

func New(conf *core.Config) (*Store, error) {
	rds, err := redis.NewRedis(redis.RedisConf{
		Host: conf.Store.RedisHost,
		Type: conf.Store.RedisType,
		Pass: conf.Store.RedisPass,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return NewStore(rds), nil
}

func NewStore(rds *redis.Redis) *Store {
	return &Store{rds: rds}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rds.GetCtx(ctx, keyPrefix+key)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", key)
	}
	if val == "" {
		return "", core.ErrKeyNotFound
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.rds.SetCtx(ctx, keyPrefix+key, value), "writing %s", key)
}

func (s *Store) Clear(ctx context.Context, key string) error {
	_, err := s.rds.DelCtx(ctx, keyPrefix+key)
	return errors.Wrapf(err, "clearing %s", key)
}

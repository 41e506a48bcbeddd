// Package memory is an in-process KVStore backed by go-cache. Values never
// expire; the cache is used purely as a concurrent map.
package memory

import (
	"context"

	"github.com/patrickmn/go-cache"
)

type Store struct {
	c *cache.Cache
}

func New() *Store {
	return &Store{c: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Delete(key)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	return s.c.ItemCount()
}

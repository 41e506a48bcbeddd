// Package store defines the string key-value contract the persistence layer
// is built on, plus decorators shared by every backend.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("store closed")

// KVStore is an asynchronous string-to-string store. Get reports a missing
// key with ok=false and a nil error.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type prefixed struct {
	inner  KVStore
	prefix string
}

// WithPrefix namespaces every key as "<prefix>/<key>". A trailing slash on
// prefix is tolerated.
func WithPrefix(inner KVStore, prefix string) KVStore {
	return &prefixed{inner: inner, prefix: strings.TrimSuffix(prefix, "/") + "/"}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

// Ping forwards to the wrapped store when it supports it.
func (p *prefixed) Ping(ctx context.Context) error {
	if pinger, ok := p.inner.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

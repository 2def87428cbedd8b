package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type ConnectionInfo struct {
	URL         string // redis:// URL; overrides Addr/Password/DB when set
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

type Client = goredis.Client

func options(info ConnectionInfo) (*goredis.Options, error) {
	opts := &goredis.Options{
		Addr:     info.Addr,
		Password: info.Password,
		DB:       info.DB,
	}
	if info.URL != "" {
		parsed, err := goredis.ParseURL(info.URL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	opts.MaxRetries = info.MaxRetries
	opts.DialTimeout = info.DialTimeout
	opts.ReadTimeout = info.Timeout
	opts.WriteTimeout = info.Timeout
	return opts, nil
}

func NewRedisConnection(info ConnectionInfo) (*Client, error) {
	opts, err := options(info)
	if err != nil {
		return nil, err
	}
	if info.Timeout <= 0 {
		info.Timeout = 3 * time.Second
	}

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), info.Timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func Close(c *Client) {
	if c == nil {
		return
	}
	_ = c.Close()
}

// Cache is a namespaced byte cache on top of a client.
type Cache struct {
	raw    *Client
	prefix string
}

func NewCache(c *Client, prefix string) *Cache {
	return &Cache{raw: c, prefix: prefix}
}

func (c *Cache) withPrefix(key string) string {
	return c.prefix + key
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.raw.Get(ctx, c.withPrefix(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.raw.Set(ctx, c.withPrefix(key), value, ttl).Err()
}
